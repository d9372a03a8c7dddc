package jdwp

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// target implements jdi.Target over one JDWP connection.
type target struct {
	c   *conn
	log *logrus.Entry

	vmName      string
	vmVersion   string
	canWatchMod bool
	canWatchAcc bool
	canMonitor  bool

	typeMu sync.Mutex
	types  map[uint64]*typeRef

	reqMu    sync.Mutex
	requests map[int32]*request
	steps    []*request

	queue *eventQueue

	disposeOnce sync.Once
}

func newTarget(c *conn, log *logrus.Entry) *target {
	t := &target{
		c:        c,
		log:      log,
		types:    make(map[uint64]*typeRef),
		requests: make(map[int32]*request),
	}
	t.queue = &eventQueue{t: t}
	t.readVersion()
	t.readCapabilities()
	return t
}

func (t *target) w() *writer { return newWriter(&t.c.sizes) }

func (t *target) send(cmdSet, cmd byte, body []byte) (*reader, error) {
	return t.c.command(cmdSet, cmd, body)
}

func (t *target) readVersion() {
	r, err := t.send(cmdSetVirtualMachine, vmVersion, nil)
	if err != nil {
		return
	}
	r.stringVal() // description
	r.int32()     // jdwpMajor
	r.int32()     // jdwpMinor
	t.vmVersion = r.stringVal()
	t.vmName = r.stringVal()
}

func (t *target) readCapabilities() {
	r, err := t.send(cmdSetVirtualMachine, vmCapabilitiesNew, nil)
	if err != nil {
		return
	}
	caps := make([]bool, 0, 32)
	for r.remaining() > 0 {
		caps = append(caps, r.boolVal())
	}
	at := func(i int) bool { return i <= len(caps) && caps[i-1] }
	t.canWatchMod = at(1)
	t.canWatchAcc = at(2)
	t.canMonitor = at(17)
}

// Dispose releases the connection. Idempotent.
func (t *target) Dispose() {
	t.disposeOnce.Do(func() {
		_, _ = t.send(cmdSetVirtualMachine, vmDispose, nil)
		t.c.close()
	})
}

func (t *target) Name() string { return t.vmName }
func (t *target) Version() string { return t.vmVersion }

func (t *target) CanRequestMonitorEvents() bool { return t.canMonitor }
func (t *target) CanWatchFieldAccess() bool { return t.canWatchAcc }
func (t *target) CanWatchFieldModification() bool { return t.canWatchMod }

// ClassesByName resolves every loaded type with the given source name.
func (t *target) ClassesByName(name string) []jdi.TypeRef {
	r, err := t.send(cmdSetVirtualMachine, vmClassesBySig,
		t.w().stringVal(nameToSignature(name)).data)
	if err != nil {
		return nil
	}
	n := int(r.int32())
	out := make([]jdi.TypeRef, 0, n)
	for i := 0; i < n; i++ {
		tag := r.byteVal()
		id := r.refTypeID()
		r.int32() // status
		if ref := t.typeRefByID(id, tag); ref != nil {
			out = append(out, ref)
		}
	}
	return out
}

// typeRefByID returns the cached mirror for a type id, fetching the
// signature on first sight.
func (t *target) typeRefByID(id uint64, tag byte) *typeRef {
	if id == 0 {
		return nil
	}
	t.typeMu.Lock()
	if ref, ok := t.types[id]; ok {
		t.typeMu.Unlock()
		return ref
	}
	t.typeMu.Unlock()

	r, err := t.send(cmdSetReferenceType, refTypeSignature, t.w().refTypeID(id).data)
	if err != nil {
		return nil
	}
	sig := r.stringVal()

	t.typeMu.Lock()
	defer t.typeMu.Unlock()
	if ref, ok := t.types[id]; ok {
		return ref
	}
	ref := &typeRef{t: t, id: id, tag: tag, sig: sig}
	t.types[id] = ref
	return ref
}

// typeRefBySignature registers a type learned from an event payload.
func (t *target) typeRefBySignature(id uint64, tag byte, sig string) *typeRef {
	t.typeMu.Lock()
	defer t.typeMu.Unlock()
	if ref, ok := t.types[id]; ok {
		return ref
	}
	ref := &typeRef{t: t, id: id, tag: tag, sig: sig}
	t.types[id] = ref
	return ref
}

// eventLocation wraps locationFromWire for interface-typed event fields,
// keeping a failed resolution an untyped nil.
func (t *target) eventLocation(wl wireLocation) jdi.Location {
	if l := t.locationFromWire(wl); l != nil {
		return l
	}
	return nil
}

// locationFromWire turns a wire location into a mirror, resolving the
// source line from the method's line table.
func (t *target) locationFromWire(wl wireLocation) *location {
	declaring := t.typeRefByID(wl.classID, wl.typeTag)
	if declaring == nil {
		return nil
	}
	method := declaring.methodByID(wl.methodID)
	if method == nil {
		return nil
	}
	return &location{
		t:         t,
		declaring: declaring,
		method:    method,
		codeIndex: wl.codeIndex,
		line:      method.lineAt(wl.codeIndex),
	}
}

func (t *target) AllThreads() []jdi.ThreadRef {
	r, err := t.send(cmdSetVirtualMachine, vmAllThreads, nil)
	if err != nil {
		return nil
	}
	n := int(r.int32())
	out := make([]jdi.ThreadRef, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &threadRef{t: t, id: r.objectID()})
	}
	return out
}

func (t *target) Resume() {
	_, _ = t.send(cmdSetVirtualMachine, vmResume, nil)
}

func (t *target) Suspend() {
	_, _ = t.send(cmdSetVirtualMachine, vmSuspend, nil)
}

// --- mirrors ---

func (t *target) MirrorBool(v bool) jdi.Value {
	bits := uint64(0)
	if v {
		bits = 1
	}
	return &primValue{tag: tagBoolean, bits: bits}
}

func (t *target) MirrorByte(v int8) jdi.Value {
	return &primValue{tag: tagByte, bits: uint64(uint8(v))}
}

func (t *target) MirrorChar(v rune) jdi.Value {
	return &primValue{tag: tagChar, bits: uint64(uint16(v))}
}

func (t *target) MirrorShort(v int16) jdi.Value {
	return &primValue{tag: tagShort, bits: uint64(uint16(v))}
}

func (t *target) MirrorInt(v int32) jdi.Value {
	return &primValue{tag: tagInt, bits: uint64(uint32(v))}
}

func (t *target) MirrorLong(v int64) jdi.Value {
	return &primValue{tag: tagLong, bits: uint64(v)}
}

func (t *target) MirrorFloat(v float32) jdi.Value {
	return &primValue{tag: tagFloat, bits: uint64(math.Float32bits(v))}
}

func (t *target) MirrorDouble(v float64) jdi.Value {
	return &primValue{tag: tagDouble, bits: math.Float64bits(v)}
}

func (t *target) MirrorString(s string) (jdi.Value, error) {
	r, err := t.send(cmdSetVirtualMachine, vmCreateString, t.w().stringVal(s).data)
	if err != nil {
		return nil, err
	}
	id := r.objectID()
	return &stringValue{objectValue: objectValue{t: t, id: id, tag: tagString}, text: s}, nil
}

func (t *target) EventQueue() jdi.EventQueue { return t.queue }
