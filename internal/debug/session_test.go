package debug

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdimcp/jdi-mcp/internal/config"
	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Compile-time checks that the fakes satisfy the adapter surface.
var (
	_ jdi.Adapter           = (*fakeAdapter)(nil)
	_ jdi.Target            = (*fakeTarget)(nil)
	_ jdi.ThreadRef         = (*fakeThread)(nil)
	_ jdi.FrameRef          = (*fakeFrame)(nil)
	_ jdi.TypeRef           = (*fakeType)(nil)
	_ jdi.ObjectValue       = (*fakeObject)(nil)
	_ jdi.ArrayValue        = (*fakeArray)(nil)
	_ jdi.EventSet          = (*fakeEventSet)(nil)
	_ jdi.BreakpointEvent   = (*fakeBreakpointEvent)(nil)
	_ jdi.StepCompleteEvent = (*fakeStepEvent)(nil)
	_ jdi.ExceptionEvent    = (*fakeExceptionEvent)(nil)
	_ jdi.ModifyWatchEvent  = (*fakeModifyWatchEvent)(nil)
	_ jdi.ClassPrepareEvent = (*fakeClassPrepareEvent)(nil)
)

func newTestSession(adapter jdi.Adapter) *Session {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewSession(config.DefaultConfig(), adapter, logrus.NewEntry(log))
}

// waitUntil polls a condition; pump effects are asynchronous.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached: %s", msg)
}

func TestSession_AttachAndDescribe(t *testing.T) {
	target := newFakeTarget()
	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	require.True(t, s.IsConnected())
	info := s.Describe()
	assert.Equal(t, ConnAttachSocket, info.ConnectionKind)
	assert.Equal(t, "Fake VM", info.VMName)
	assert.Equal(t, "21.0.0", info.VMVersion)
	assert.NotEmpty(t, info.InstanceID)
}

func TestSession_AttachTwiceFails(t *testing.T) {
	target := newFakeTarget()
	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	err = s.AttachSocket("localhost", 5006, false, 0)
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyConnected, errors.FromError(err).Code)
}

func TestSession_OperationsRequireConnection(t *testing.T) {
	s := newTestSession(&fakeAdapter{target: newFakeTarget()})

	_, err := s.Target()
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotConnected, errors.FromError(err).Code)

	err = s.Resume()
	assert.Equal(t, errors.CodeNotConnected, errors.FromError(err).Code)
}

func TestPump_BreakpointStopIsNotResumed(t *testing.T) {
	target := newFakeTarget()
	cls := target.addClass(newFakeType("com.example.C", 15))
	thread := target.addThread(&fakeThread{id: 1, name: "main", suspended: true})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	tgt, err := s.Target()
	require.NoError(t, err)
	rec, err := s.Breakpoints.Set(tgt, "com.example.C", 15)
	require.NoError(t, err)
	require.False(t, rec.Pending)

	loc := &fakeLocation{typ: cls, method: &fakeMethod{owner: cls, name: "run", sig: "()V"}, line: 15}
	set := &fakeEventSet{
		policy: jdi.SuspendAll,
		events: []jdi.Event{&fakeBreakpointEvent{thread: thread, loc: loc}},
	}
	target.deliver(set)

	reason := s.WaitForStop(2 * time.Second)
	require.Equal(t, StopBreakpointHit, reason.Kind())
	assert.Equal(t, rec.ID, reason.Detail("breakpointId"))
	assert.Equal(t, "com.example.C", reason.Detail("class"))
	assert.Equal(t, "15", reason.Detail("line"))

	// The target must stay suspended after a stop event.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, set.wasResumed())

	// Hit count moved.
	assert.Equal(t, int64(1), s.Breakpoints.Get(rec.ID).HitCount)
}

func TestPump_MonitorOnlySetIsResumed(t *testing.T) {
	target := newFakeTarget()
	thread := target.addThread(&fakeThread{id: 1, name: "worker-1"})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	set := &fakeEventSet{
		policy: jdi.SuspendNone,
		events: []jdi.Event{&fakeThreadStartEvent{thread: thread}},
	}
	target.deliver(set)

	waitUntil(t, set.wasResumed, "monitor-only event set resumed")
	assert.False(t, s.IsStopped())

	// And the event was captured for events_pending.
	waitUntil(t, func() bool { return s.Events.PendingCount() == 1 }, "event captured")
	events := s.Events.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventThreadStart, events[0].Kind)
}

func TestPump_ClassPrepareResolvesDeferred(t *testing.T) {
	target := newFakeTarget()
	thread := target.addThread(&fakeThread{id: 1, name: "main", suspended: true})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	tgt, err := s.Target()
	require.NoError(t, err)

	rec, err := s.Breakpoints.Set(tgt, "com.example.NotYetLoaded", 3)
	require.NoError(t, err)
	require.True(t, rec.Pending)
	assert.Equal(t, 1, s.Breakpoints.PendingCount())

	// The class shows up.
	cls := target.addClass(newFakeType("com.example.NotYetLoaded", 3))
	set := &fakeEventSet{
		policy: jdi.SuspendAll,
		events: []jdi.Event{&fakeClassPrepareEvent{thread: thread, ref: cls}},
	}
	target.deliver(set)

	waitUntil(t, func() bool { return s.Breakpoints.Get(rec.ID) != nil && !s.Breakpoints.Get(rec.ID).Pending },
		"deferred breakpoint activated")
	assert.Equal(t, 0, s.Breakpoints.PendingCount())

	// Class prepare is a monitor event: the set resumes.
	waitUntil(t, set.wasResumed, "class prepare set resumed")
}

func TestPump_StepEventDeletesItsRequest(t *testing.T) {
	target := newFakeTarget()
	cls := target.addClass(newFakeType("com.example.C", 10))
	frame := newFakeFrame(&fakeLocation{typ: cls, method: &fakeMethod{owner: cls, name: "run", sig: "()V"}, line: 10})
	thread := target.addThread(&fakeThread{id: 1, name: "main", suspended: true, frames: []*fakeFrame{frame}})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	_, err = s.Step(1, jdi.StepInto)
	require.NoError(t, err)

	reqs := target.StepRequests()
	require.Len(t, reqs, 1)
	stepReq := reqs[0].(*fakeRequest)

	set := &fakeEventSet{
		policy: jdi.SuspendAll,
		events: []jdi.Event{&fakeStepEvent{
			fakeBaseEvent: fakeBaseEvent{req: stepReq},
			thread:        thread,
			loc:           frame.loc,
		}},
	}
	target.deliver(set)

	reason := s.WaitForStop(2 * time.Second)
	require.Equal(t, StopStepComplete, reason.Kind())
	waitUntil(t, stepReq.isDeleted, "one-shot step request deleted")
}

func TestWaitForStop_ZeroTimeout(t *testing.T) {
	target := newFakeTarget()
	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	start := time.Now()
	reason := s.WaitForStop(0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.False(t, reason.IsStopped())

	// Already stopped: returns the current reason immediately.
	s.SetStopReason(UserSuspendReason())
	reason = s.WaitForStop(0)
	assert.Equal(t, StopUserSuspend, reason.Kind())
}

func TestWaitForStop_TimeoutReturnsNone(t *testing.T) {
	target := newFakeTarget()
	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	start := time.Now()
	reason := s.WaitForStop(150 * time.Millisecond)
	waited := time.Since(start)

	assert.False(t, reason.IsStopped())
	assert.GreaterOrEqual(t, waited, 140*time.Millisecond)
	assert.False(t, s.IsStopped(), "session still reports RUNNING after timeout")
}

func TestWaitForStop_ResumeThenWaitSeesNextStop(t *testing.T) {
	target := newFakeTarget()
	cls := target.addClass(newFakeType("com.example.C", 15))
	thread := target.addThread(&fakeThread{id: 1, name: "main", suspended: true})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	// A first stop is recorded.
	s.SetStopReason(UserSuspendReason())

	// resume clears it before the adapter resumes.
	require.NoError(t, s.Resume())
	assert.False(t, s.IsStopped())

	done := make(chan *StopReason, 1)
	go func() { done <- s.WaitForStop(2 * time.Second) }()

	loc := &fakeLocation{typ: cls, method: &fakeMethod{owner: cls, name: "run", sig: "()V"}, line: 15}
	target.deliver(&fakeEventSet{
		policy: jdi.SuspendAll,
		events: []jdi.Event{&fakeBreakpointEvent{thread: thread, loc: loc}},
	})

	reason := <-done
	assert.Equal(t, StopBreakpointHit, reason.Kind(), "waiter sees the next stop, not the stale one")
}

func TestDisconnect_WakesWaitersAndResetsRegistries(t *testing.T) {
	target := newFakeTarget()
	target.addClass(newFakeType("com.example.C", 15))

	s, _, err := connect(target)
	require.NoError(t, err)

	tgt, err := s.Target()
	require.NoError(t, err)
	_, err = s.Breakpoints.Set(tgt, "com.example.C", 15)
	require.NoError(t, err)
	_, err = s.Watches.Add("this.counter")
	require.NoError(t, err)

	done := make(chan *StopReason, 1)
	go func() { done <- s.WaitForStop(10 * time.Second) }()
	time.Sleep(20 * time.Millisecond)

	s.Disconnect()

	select {
	case reason := <-done:
		assert.Equal(t, StopVMDisconnect, reason.Kind())
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by disconnect")
	}

	assert.Empty(t, s.Breakpoints.All())
	assert.False(t, s.IsConnected())

	// A subsequent operation reports NotConnected.
	_, err = s.Target()
	assert.Equal(t, errors.CodeNotConnected, errors.FromError(err).Code)

	// Idempotent.
	s.Disconnect()
}

func TestPump_VMDisconnectEndsPump(t *testing.T) {
	target := newFakeTarget()
	s, _, err := connect(target)
	require.NoError(t, err)

	done := make(chan *StopReason, 1)
	go func() { done <- s.WaitForStop(10 * time.Second) }()
	time.Sleep(20 * time.Millisecond)

	// The adapter connection drops.
	target.Dispose()

	select {
	case reason := <-done:
		assert.Equal(t, StopVMDisconnect, reason.Kind())
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by adapter disconnect")
	}
}

func TestSuspendAll_RecordsUserSuspend(t *testing.T) {
	target := newFakeTarget()
	target.addThread(&fakeThread{id: 1, name: "main"})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	require.NoError(t, s.SuspendAll())
	assert.Equal(t, StopUserSuspend, s.LastStopReason().Kind())
	assert.Equal(t, 1, target.suspends)
}

func TestFirstSuspendedThread_PrefersJavaCode(t *testing.T) {
	target := newFakeTarget()
	cls := target.addClass(newFakeType("com.example.C", 10))
	method := &fakeMethod{owner: cls, name: "run", sig: "()V"}

	nativeFrame := newFakeFrame(&fakeLocation{typ: cls, method: method, line: -1})
	javaFrame := newFakeFrame(&fakeLocation{typ: cls, method: method, line: 10})

	target.addThread(&fakeThread{id: 1, name: "native-thread", suspended: true, frames: []*fakeFrame{nativeFrame}})
	java := target.addThread(&fakeThread{id: 2, name: "worker", suspended: true, frames: []*fakeFrame{javaFrame}})

	s, _, err := connect(target)
	require.NoError(t, err)
	defer s.Disconnect()

	picked, err := s.FirstSuspendedThread(0)
	require.NoError(t, err)
	assert.Equal(t, java.id, picked.UniqueID())
}
