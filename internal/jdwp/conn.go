package jdwp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

const handshake = "JDWP-Handshake"

// idSizes carries the per-VM byte widths of the opaque identifier kinds,
// read once after the handshake.
type idSizes struct {
	fieldID   int
	methodID  int
	objectID  int
	refTypeID int
	frameID   int
}

// packet is one JDWP message in either direction.
type packet struct {
	id      uint32
	flags   byte
	cmdSet  byte
	cmd     byte
	errCode uint16
	data    []byte
}

const flagReply = 0x80

// conn owns the socket: it serialises outgoing command packets, pairs
// replies to waiters by packet id, and funnels event composites to the
// event channel the queue drains.
type conn struct {
	sock net.Conn
	log  *logrus.Entry

	writeMu sync.Mutex
	nextID  uint32

	mu      sync.Mutex
	pending map[uint32]chan packet
	closed  bool

	events chan packet
	done   chan struct{}

	sizes idSizes
}

func dial(host string, port int, log *logrus.Entry) (*conn, error) {
	sock, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 10*time.Second)
	if err != nil {
		return nil, err
	}

	if _, err := sock.Write([]byte(handshake)); err != nil {
		sock.Close()
		return nil, err
	}
	reply := make([]byte, len(handshake))
	if _, err := io.ReadFull(sock, reply); err != nil {
		sock.Close()
		return nil, err
	}
	if string(reply) != handshake {
		sock.Close()
		return nil, fmt.Errorf("jdwp: bad handshake reply %q", reply)
	}

	c := &conn{
		sock:    sock,
		log:     log,
		pending: make(map[uint32]chan packet),
		events:  make(chan packet, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	if err := c.readIDSizes(); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func (c *conn) readIDSizes() error {
	r, err := c.command(cmdSetVirtualMachine, vmIDSizes, nil)
	if err != nil {
		return err
	}
	c.sizes = idSizes{
		fieldID:   int(r.int32()),
		methodID:  int(r.int32()),
		objectID:  int(r.int32()),
		refTypeID: int(r.int32()),
		frameID:   int(r.int32()),
	}
	return nil
}

// readLoop is the single reader of the socket. Replies wake their
// waiters; event composites queue for the event pump.
func (c *conn) readLoop() {
	defer c.close()

	header := make([]byte, 11)
	for {
		if _, err := io.ReadFull(c.sock, header); err != nil {
			return
		}
		length := binary.BigEndian.Uint32(header[0:4])
		if length < 11 {
			c.log.Warnf("jdwp: short packet length %d", length)
			return
		}
		p := packet{
			id:    binary.BigEndian.Uint32(header[4:8]),
			flags: header[8],
		}
		if p.flags&flagReply != 0 {
			p.errCode = binary.BigEndian.Uint16(header[9:11])
		} else {
			p.cmdSet = header[9]
			p.cmd = header[10]
		}
		p.data = make([]byte, length-11)
		if _, err := io.ReadFull(c.sock, p.data); err != nil {
			return
		}

		if p.flags&flagReply != 0 {
			c.mu.Lock()
			ch, ok := c.pending[p.id]
			delete(c.pending, p.id)
			c.mu.Unlock()
			if ok {
				ch <- p
			}
			continue
		}

		if p.cmdSet == cmdSetEvent && p.cmd == eventComposite {
			select {
			case c.events <- p:
			case <-c.done:
				return
			}
			continue
		}
		c.log.Debugf("jdwp: ignoring unexpected command packet %d/%d", p.cmdSet, p.cmd)
	}
}

func (c *conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = map[uint32]chan packet{}
	c.mu.Unlock()

	close(c.done)
	c.sock.Close()
	for _, ch := range pending {
		close(ch)
	}
}

// command sends one command and blocks for its reply.
func (c *conn) command(cmdSet, cmd byte, body []byte) (*reader, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, jdi.ErrDisconnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan packet, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	header := make([]byte, 11)
	binary.BigEndian.PutUint32(header[0:4], uint32(11+len(body)))
	binary.BigEndian.PutUint32(header[4:8], id)
	header[8] = 0
	header[9] = cmdSet
	header[10] = cmd

	c.writeMu.Lock()
	_, err := c.sock.Write(append(header, body...))
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, jdi.ErrDisconnected
	}

	select {
	case p, ok := <-ch:
		if !ok {
			return nil, jdi.ErrDisconnected
		}
		if p.errCode != errNone {
			return nil, wireError(p.errCode)
		}
		return &reader{data: p.data, sizes: &c.sizes}, nil
	case <-c.done:
		return nil, jdi.ErrDisconnected
	}
}

func wireError(code uint16) error {
	switch code {
	case errAbsentInformation:
		return jdi.ErrAbsentInformation
	case errThreadNotSuspended, errInvalidThread:
		return jdi.ErrIncompatibleThreadState
	case errVMDead:
		return jdi.ErrDisconnected
	}
	return fmt.Errorf("jdwp: error code %d", code)
}

// nextEvent returns the next event composite, nil on timeout,
// ErrDisconnected after close.
func (c *conn) nextEvent(timeout time.Duration) (*reader, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p := <-c.events:
		return &reader{data: p.data, sizes: &c.sizes}, nil
	case <-c.done:
		return nil, jdi.ErrDisconnected
	case <-timer.C:
		return nil, nil
	}
}
