package debug

import (
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/config"
	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// ConnectionKind describes how the session reached its debuggee.
type ConnectionKind string

const (
	ConnNone         ConnectionKind = "NONE"
	ConnLaunch       ConnectionKind = "LAUNCH"
	ConnAttachSocket ConnectionKind = "ATTACH_SOCKET"
	ConnAttachPid    ConnectionKind = "ATTACH_PID"
)

// pumpPollInterval is the event-queue pull timeout. Short enough that
// disconnect is observed promptly, long enough not to spin.
const pumpPollInterval = 100 * time.Millisecond

// Session owns the connection to the debuggee, the event pump, every
// artefact registry, and the stop-reason state that wait_for_stop blocks
// on. Exactly one debuggee is active at a time.
//
// Concurrency contract: the pump goroutine is the only writer of stop
// reasons from events and the only driver of deferred resolution; tool
// handlers are the only callers of ClearStopReason, Resume and step
// creation. Registries carry their own locks.
type Session struct {
	cfg     *config.Config
	adapter jdi.Adapter
	log     *logrus.Entry

	mu          sync.Mutex
	target      jdi.Target
	process     *exec.Cmd
	procOutput  *outputRing
	connKind    ConnectionKind
	connDetails string
	connectedAt time.Time
	instanceID  string

	// Stop state. stopChanged is replaced (and the old one closed) on
	// every SetStopReason; waiters select on it.
	stopMu      sync.Mutex
	stopReason  *StopReason
	stopChanged chan struct{}

	// Pump lifecycle.
	pumpStop chan struct{}
	pumpDone chan struct{}

	// Last exception stop, kept for exception_info.
	lastExcMu sync.Mutex
	lastExc   jdi.ExceptionEvent

	Breakpoints  *LineBreakpoints
	Watchpoints  *Watchpoints
	MethodBreaks *MethodBreakpoints
	Exceptions   *ExceptionBreakpoints
	Watches      *WatchExpressions
	Events       *EventMonitors
}

// NewSession creates a disconnected session backed by the given adapter.
func NewSession(cfg *config.Config, adapter jdi.Adapter, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		cfg:          cfg,
		adapter:      adapter,
		log:          log.WithField("component", "session"),
		connKind:     ConnNone,
		stopReason:   NoReason(),
		stopChanged:  make(chan struct{}),
		Breakpoints:  NewLineBreakpoints(log),
		Watchpoints:  NewWatchpoints(log),
		MethodBreaks: NewMethodBreakpoints(log),
		Exceptions:   NewExceptionBreakpoints(log),
		Watches:      NewWatchExpressions(),
		Events:       NewEventMonitors(log),
	}
}

// IsConnected reports whether a debuggee is attached.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target != nil
}

// Target returns the attached debuggee, or an error when disconnected.
func (s *Session) Target() (jdi.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return nil, errors.NotConnected()
	}
	return s.target, nil
}

// Info describes the session for debug_status and vm_info.
type Info struct {
	Connected      bool
	InstanceID     string
	ConnectionKind ConnectionKind
	Details        string
	ConnectedAt    time.Time
	VMName         string
	VMVersion      string
	// OutputTail is the retained stdout/stderr of a launched debuggee.
	OutputTail string
}

// Describe returns a snapshot of the connection state.
func (s *Session) Describe() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		Connected:      s.target != nil,
		InstanceID:     s.instanceID,
		ConnectionKind: s.connKind,
		Details:        s.connDetails,
		ConnectedAt:    s.connectedAt,
	}
	if s.target != nil {
		info.VMName = s.target.Name()
		info.VMVersion = s.target.Version()
	}
	if s.procOutput != nil {
		info.OutputTail = s.procOutput.Tail()
	}
	return info
}

// AttachSocket attaches to a JVM listening on host:port. When waitForPort
// is set the port is polled until it accepts connections, up to
// waitTimeout.
func (s *Session) AttachSocket(host string, port int, waitForPort bool, waitTimeout time.Duration) error {
	if host == "" {
		host = "localhost"
	}
	if waitForPort {
		if err := pollPort(host, port, waitTimeout); err != nil {
			return errors.ConnectFailed(addrString(host, port), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		return errors.AlreadyConnected(s.connDetails)
	}

	target, err := s.adapter.ConnectSocket(host, port)
	if err != nil {
		return errors.ConnectFailed(addrString(host, port), err)
	}
	s.installTargetLocked(target, nil, nil, ConnAttachSocket, "Attached: "+addrString(host, port))
	return nil
}

// AttachPid attaches to a local JVM by process id.
func (s *Session) AttachPid(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		return errors.AlreadyConnected(s.connDetails)
	}

	target, err := s.adapter.ConnectPid(pid)
	if err != nil {
		return errors.Wrap(errors.CodeConnectError,
			"failed to attach to pid", "Ensure the process is a JVM started with the JDWP agent.", err)
	}
	s.installTargetLocked(target, nil, nil, ConnAttachPid, "Attached PID: "+strconv.Itoa(pid))
	return nil
}

// installTargetLocked wires a freshly connected target into the session
// and starts the pump. Callers hold s.mu.
func (s *Session) installTargetLocked(target jdi.Target, proc *exec.Cmd, output *outputRing, kind ConnectionKind, details string) {
	s.target = target
	s.process = proc
	s.procOutput = output
	s.connKind = kind
	s.connDetails = details
	s.connectedAt = time.Now()
	s.instanceID = uuid.New().String()

	s.stopMu.Lock()
	s.stopReason = NoReason()
	s.stopMu.Unlock()

	s.pumpStop = make(chan struct{})
	s.pumpDone = make(chan struct{})
	go s.pump(target, s.pumpStop, s.pumpDone)

	s.log.WithFields(logrus.Fields{"kind": kind, "details": details}).Info("session connected")
}

// Disconnect tears the session down: stops the pump, disposes the target,
// kills a launched debuggee, resets every registry and restores the stop
// state. Idempotent and safe to call concurrently with anything.
func (s *Session) Disconnect() {
	s.mu.Lock()
	target := s.target
	proc := s.process
	pumpStop, pumpDone := s.pumpStop, s.pumpDone
	s.target = nil
	s.process = nil
	s.procOutput = nil
	s.connKind = ConnNone
	s.connDetails = ""
	s.connectedAt = time.Time{}
	s.instanceID = ""
	s.pumpStop = nil
	s.pumpDone = nil
	s.mu.Unlock()

	if pumpStop != nil {
		close(pumpStop)
		<-pumpDone
	}

	if target != nil {
		target.Dispose()
	}
	if proc != nil && proc.Process != nil {
		_ = proc.Process.Kill()
	}

	s.Events.Reset()
	s.Breakpoints.ClearAll()
	s.Watchpoints.ClearAll()
	s.MethodBreaks.ClearAll()
	s.Exceptions.ClearAll()
	s.Watches.ClearAll()

	// Wake any waiter blocked in WaitForStop.
	s.SetStopReason(VMDisconnectReason())

	if target != nil {
		s.log.Info("session disconnected")
	}
}

// pump is the single consumer of the adapter event stream. It classifies
// each event set, installs stop reasons, drives deferred resolution and
// resumes monitor-only sets.
func (s *Session) pump(target jdi.Target, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	queue := target.EventQueue()

	for {
		select {
		case <-stop:
			return
		default:
		}

		set, err := queue.Remove(pumpPollInterval)
		if err != nil {
			if err == jdi.ErrDisconnected {
				s.log.Info("event pump: target disconnected")
				s.SetStopReason(VMDisconnectReason())
				return
			}
			s.log.WithError(err).Debug("event pump: adapter error")
			continue
		}
		if set == nil {
			continue
		}

		stopped := false
		for _, ev := range set.Events() {
			if reason := StopReasonFromEvent(ev, s.Breakpoints); reason != nil {
				stopped = true
				if reason.Kind() == StopBreakpointHit && reason.Location() != nil {
					s.Breakpoints.RecordHit(reason.Location())
				}
				if exc, ok := ev.(jdi.ExceptionEvent); ok {
					s.rememberException(exc)
				}
				s.SetStopReason(reason)
			}
			s.processEvent(target, ev)
		}

		// A set containing any stop event leaves the target suspended
		// until an explicit resume or step; monitor-only sets resume.
		if !stopped {
			set.Resume()
		}
	}
}

// processEvent updates subordinate state for a single event.
func (s *Session) processEvent(target jdi.Target, ev jdi.Event) {
	s.Events.Capture(ev)

	switch e := ev.(type) {
	case jdi.ClassPrepareEvent:
		ref := e.ReferenceType()
		s.Breakpoints.OnClassPrepare(target, ref)
		s.Watchpoints.OnClassPrepare(target, ref)
		s.MethodBreaks.OnClassPrepare(target, ref)
	case jdi.StepCompleteEvent:
		// Step requests fire once; delete so the thread can step again.
		if req := e.Request(); req != nil && req.Thread() != nil {
			req.Delete()
		}
	}
}

func (s *Session) rememberException(e jdi.ExceptionEvent) {
	s.lastExcMu.Lock()
	s.lastExc = e
	s.lastExcMu.Unlock()
}

// LastException returns the most recent exception stop event, or nil.
func (s *Session) LastException() jdi.ExceptionEvent {
	s.lastExcMu.Lock()
	defer s.lastExcMu.Unlock()
	return s.lastExc
}

// --- Stop / wait primitive ---

// SetStopReason publishes a stop reason and wakes every waiter.
func (s *Session) SetStopReason(r *StopReason) {
	s.stopMu.Lock()
	s.stopReason = r
	close(s.stopChanged)
	s.stopChanged = make(chan struct{})
	s.stopMu.Unlock()
}

// ClearStopReason resets the stop state to "running". Called by handlers
// immediately before asking the adapter to resume, so a subsequent
// WaitForStop observes the next stop, never a stale one.
func (s *Session) ClearStopReason() {
	s.stopMu.Lock()
	s.stopReason = NoReason()
	s.stopMu.Unlock()
}

// LastStopReason returns the current stop reason (never nil).
func (s *Session) LastStopReason() *StopReason {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.stopReason
}

// IsStopped reports whether the target is currently stopped by a debug
// event.
func (s *Session) IsStopped() bool {
	return s.LastStopReason().IsStopped()
}

// WaitForStop blocks until the target stops, the session disconnects, or
// the timeout elapses. A zero timeout returns immediately with the
// current state. Timeout returns the NONE reason.
func (s *Session) WaitForStop(timeout time.Duration) *StopReason {
	deadline := time.Now().Add(timeout)

	for {
		s.stopMu.Lock()
		reason := s.stopReason
		changed := s.stopChanged
		s.stopMu.Unlock()

		if reason.IsStopped() {
			return reason
		}
		if !s.IsConnected() {
			return VMDisconnectReason()
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return NoReason()
		}

		timer := time.NewTimer(remaining)
		select {
		case <-changed:
			timer.Stop()
		case <-timer.C:
			return NoReason()
		}
	}
}

// --- Execution control ---

// Resume clears the stop reason, then resumes every thread. The ordering
// guarantees a resume-then-wait caller sees the next stop reason.
func (s *Session) Resume() error {
	target, err := s.Target()
	if err != nil {
		return err
	}
	s.ClearStopReason()
	target.Resume()
	return nil
}

// SuspendAll suspends every thread and records a USER_SUSPEND stop.
func (s *Session) SuspendAll() error {
	target, err := s.Target()
	if err != nil {
		return err
	}
	target.Suspend()
	s.SetStopReason(UserSuspendReason())
	return nil
}

// FindThread locates a live thread by unique id.
func (s *Session) FindThread(threadID int64) (jdi.ThreadRef, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	for _, t := range target.AllThreads() {
		if t.UniqueID() == threadID {
			return t, nil
		}
	}
	return nil, errors.ThreadNotFound(threadID)
}

// FirstSuspendedThread returns a suspended non-system thread, preferring
// one stopped in Java code. threadID > 0 restricts the search to that
// thread.
func (s *Session) FirstSuspendedThread(threadID int64) (jdi.ThreadRef, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	if threadID > 0 {
		thread, err := s.FindThread(threadID)
		if err != nil {
			return nil, err
		}
		if !thread.IsSuspended() {
			return nil, errors.ThreadNotSuspended(thread.Name())
		}
		return thread, nil
	}

	var fallback jdi.ThreadRef
	for _, t := range target.AllThreads() {
		if !t.IsSuspended() || isSystemThread(t) {
			continue
		}
		frame, err := t.Frame(0)
		if err == nil && frame.Location().LineNumber() > 0 {
			return t, nil
		}
		if fallback == nil {
			fallback = t
		}
	}
	if fallback == nil {
		return nil, errors.Wrap(errors.CodeThreadNotSuspended,
			"no suspended thread found",
			"Set a breakpoint and resume, or call suspend first.", nil)
	}
	return fallback, nil
}

// isSystemThread filters JVM housekeeping threads out of heuristics.
func isSystemThread(t jdi.ThreadRef) bool {
	name := t.Name()
	for _, prefix := range []string{
		"Reference Handler", "Finalizer", "Signal Dispatcher",
		"Attach Listener", "Common-Cleaner", "JDWP ", "GC ", "VM ",
	} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
