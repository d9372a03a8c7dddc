package debug

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

func steppingFixture(t *testing.T) (*Session, *fakeTarget, *fakeThread) {
	t.Helper()
	target := newFakeTarget()

	helperType := target.addClass(newFakeType("com.example.Helper"))
	helperType.withMethod(&fakeMethod{name: "assist", sig: "()V", retType: "void"})

	cls := target.addClass(newFakeType("com.example.C", 10, 15))
	cls.withMethod(&fakeMethod{name: "process", sig: "(I)V", retType: "void", argTypes: []string{"int"}})
	cls.withMethod(&fakeMethod{name: "validate", sig: "()Z", retType: "boolean"})

	method := &fakeMethod{owner: cls, name: "process", sig: "(I)V"}
	frame := newFakeFrame(&fakeLocation{typ: cls, method: method, line: 10})
	frame.withLocal("helper", "com.example.Helper", false, newFakeObject(50, helperType))

	thread := target.addThread(&fakeThread{id: 1, name: "main", suspended: true, frames: []*fakeFrame{frame}})

	s, _, err := connect(target)
	require.NoError(t, err)
	t.Cleanup(s.Disconnect)
	return s, target, thread
}

func TestStep_CreatesRequestClearsStopAndResumes(t *testing.T) {
	s, target, thread := steppingFixture(t)
	s.SetStopReason(UserSuspendReason())

	picked, err := s.Step(1, jdi.StepOver)
	require.NoError(t, err)
	assert.Equal(t, thread.id, picked.UniqueID())

	assert.False(t, s.IsStopped(), "stop reason cleared before resume")
	assert.Equal(t, 1, target.resumes)

	reqs := target.StepRequests()
	require.Len(t, reqs, 1)
	step := reqs[0].(*fakeRequest)
	assert.Equal(t, jdi.StepOver, step.stepDepth)
	assert.True(t, step.IsEnabled())
	assert.Equal(t, jdi.SuspendAll, step.policy)
}

func TestStep_ReplacesPreviousRequest(t *testing.T) {
	s, target, _ := steppingFixture(t)

	_, err := s.Step(1, jdi.StepInto)
	require.NoError(t, err)
	first := target.StepRequests()[0].(*fakeRequest)

	// The thread suspends again (fake resume cleared the flag).
	target.threads[0].suspended = true

	_, err = s.Step(1, jdi.StepOut)
	require.NoError(t, err)

	assert.True(t, first.isDeleted(), "previous step request deleted")
	reqs := target.StepRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, jdi.StepOut, reqs[0].(*fakeRequest).stepDepth)
}

func TestStep_RequiresSuspendedThread(t *testing.T) {
	s, target, _ := steppingFixture(t)
	target.threads[0].suspended = false

	_, err := s.Step(1, jdi.StepInto)
	require.Error(t, err)
	assert.Equal(t, errors.CodeThreadNotSuspended, errors.FromError(err).Code)
}

func TestStep_RejectsNativeFrame(t *testing.T) {
	s, target, _ := steppingFixture(t)
	target.threads[0].frames[0].loc.line = -1

	_, err := s.Step(1, jdi.StepInto)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNativeFrame, errors.FromError(err).Code)
}

func TestRunToLine_RemovesBreakpointOnTimeout(t *testing.T) {
	s, target, _ := steppingFixture(t)

	res, err := s.RunToLine("com.example.C", 15, 100*time.Millisecond)
	require.NoError(t, err)

	assert.False(t, res.Stopped)
	assert.False(t, res.OnTarget)
	assert.GreaterOrEqual(t, res.WaitedMs, int64(90))
	assert.Empty(t, s.Breakpoints.All(), "temporary breakpoint removed on the timeout path")
	assert.Equal(t, 0, target.liveRequests("breakpoint"))
	assert.Equal(t, 1, target.resumes)
}

func TestRunToLine_ReportsLanding(t *testing.T) {
	s, target, thread := steppingFixture(t)

	done := make(chan *RunToLineResult, 1)
	go func() {
		res, err := s.RunToLine("com.example.C", 15, 2*time.Second)
		require.NoError(t, err)
		done <- res
	}()

	// Wait for the temporary breakpoint, then simulate the hit.
	waitUntil(t, func() bool { return len(s.Breakpoints.All()) == 1 }, "temporary breakpoint placed")
	cls := target.classes["com.example.C"]
	loc := &fakeLocation{typ: cls, method: cls.methods[0], line: 15}
	target.deliver(&fakeEventSet{
		policy: jdi.SuspendAll,
		events: []jdi.Event{&fakeBreakpointEvent{thread: thread, loc: loc}},
	})

	res := <-done
	assert.True(t, res.Stopped)
	assert.True(t, res.OnTarget)
	assert.Empty(t, s.Breakpoints.All(), "temporary breakpoint removed on the landed path")
}

func TestSmartStepInto_ListsCallableMethods(t *testing.T) {
	s, _, _ := steppingFixture(t)

	loc, methods, err := s.ListCallableMethods(0)
	require.NoError(t, err)
	assert.Equal(t, 10, loc.LineNumber())

	names := make(map[string]bool)
	for _, m := range methods {
		names[m.ClassName+"."+m.MethodName] = true
	}
	// Declaring-type methods minus the current one, plus visible
	// variables' type methods.
	assert.True(t, names["com.example.C.validate"])
	assert.True(t, names["com.example.Helper.assist"])
	assert.False(t, names["com.example.C.process"], "the current method is not a candidate")
	assert.LessOrEqual(t, len(methods), smartStepListLimit)
}

func TestSmartStepInto_CreatesFilteredStep(t *testing.T) {
	s, target, _ := steppingFixture(t)

	_, err := s.SmartStepInto(1, "com.example.Helper")
	require.NoError(t, err)

	reqs := target.StepRequests()
	require.Len(t, reqs, 1)
	step := reqs[0].(*fakeRequest)
	assert.Equal(t, jdi.StepInto, step.stepDepth)
	assert.Equal(t, "com.example.Helper", step.classFilter)
	assert.False(t, s.IsStopped())
	assert.Equal(t, 1, target.resumes)
}

func TestCurrentLocation(t *testing.T) {
	s, _, _ := steppingFixture(t)

	loc, err := s.CurrentLocation(1)
	require.NoError(t, err)
	assert.Equal(t, "com.example.C", loc.Location.DeclaringType().Name())
	assert.Equal(t, 10, loc.Location.LineNumber())
	assert.Equal(t, 1, loc.FrameCount)
}
