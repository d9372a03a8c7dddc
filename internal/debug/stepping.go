package debug

import (
	"fmt"
	"time"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Step creates a one-shot step request on a suspended thread, clears the
// stop reason and resumes. The landing point arrives as a STEP_COMPLETE
// stop; callers follow with wait_for_stop. threadID <= 0 picks the first
// suspended thread stopped in Java code.
func (s *Session) Step(threadID int64, depth jdi.StepDepth) (jdi.ThreadRef, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	thread, err := s.FirstSuspendedThread(threadID)
	if err != nil {
		return nil, err
	}

	// Stepping needs a Java frame under the thread: native code has no
	// line table to step by.
	frame, err := thread.Frame(0)
	if err != nil {
		return nil, errors.ThreadNotSuspended(thread.Name())
	}
	if frame.Location().LineNumber() <= 0 {
		return nil, errors.NativeFrame(thread.Name())
	}

	s.deleteStepRequests(target, thread)

	req, err := target.CreateStep(thread, depth, "", 1)
	if err != nil {
		return nil, errors.Internal(err)
	}
	req.SetSuspendPolicy(jdi.SuspendAll)
	req.Enable()

	s.ClearStopReason()
	target.Resume()
	return thread, nil
}

// deleteStepRequests clears existing step requests for a thread. The
// target allows at most one outstanding step per thread.
func (s *Session) deleteStepRequests(target jdi.Target, thread jdi.ThreadRef) {
	for _, req := range target.StepRequests() {
		if t := req.Thread(); t != nil && t.UniqueID() == thread.UniqueID() {
			req.Delete()
		}
	}
}

// RunToLineResult reports where a run_to_line composite landed.
type RunToLineResult struct {
	Stopped bool
	Reason  *StopReason
	// OnTarget is true when the landing location matches the requested
	// class and line.
	OnTarget bool
	WaitedMs int64
}

// RunToLine sets a temporary breakpoint, resumes, waits for the stop and
// removes the breakpoint on every path.
func (s *Session) RunToLine(className string, line int, timeout time.Duration) (*RunToLineResult, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}

	rec, err := s.Breakpoints.Set(target, className, line)
	if err != nil {
		return nil, err
	}
	defer func() {
		// The temporary breakpoint never survives, landed or not.
		_ = s.Breakpoints.Remove(rec.ID)
	}()

	s.ClearStopReason()
	target.Resume()

	start := time.Now()
	reason := s.WaitForStop(timeout)
	res := &RunToLineResult{
		Stopped:  reason.IsStopped(),
		Reason:   reason,
		WaitedMs: time.Since(start).Milliseconds(),
	}
	if loc := reason.Location(); reason.Kind() == StopBreakpointHit && loc != nil {
		res.OnTarget = loc.DeclaringType().Name() == className && loc.LineNumber() == line
	}
	return res, nil
}

// CallableMethod describes a method plausibly invocable from the current
// line, offered by smart_step_into's listing mode.
type CallableMethod struct {
	ClassName  string
	MethodName string
	Signature  string
}

// smartStepListLimit truncates the listing; lines rarely call more.
const smartStepListLimit = 20

// ListCallableMethods enumerates candidate step-into targets at the
// thread's current location: methods of the declaring type plus methods
// of the visible variables' types, deduplicated by class.method.
func (s *Session) ListCallableMethods(threadID int64) (jdi.Location, []CallableMethod, error) {
	thread, err := s.FirstSuspendedThread(threadID)
	if err != nil {
		return nil, nil, err
	}
	frame, err := thread.Frame(0)
	if err != nil {
		return nil, nil, errors.ThreadNotSuspended(thread.Name())
	}
	loc := frame.Location()

	var out []CallableMethod
	seen := make(map[string]bool)
	add := func(className string, m jdi.MethodRef) bool {
		if m.IsConstructor() || m.IsStaticInitializer() {
			return true
		}
		key := className + "." + m.Name()
		if seen[key] {
			return true
		}
		seen[key] = true
		out = append(out, CallableMethod{ClassName: className, MethodName: m.Name(), Signature: m.Signature()})
		return len(out) < smartStepListLimit
	}

	declaring := loc.DeclaringType()
	current := loc.Method().Name()
	for _, m := range declaring.Methods() {
		if m.Name() == current {
			continue
		}
		if !add(declaring.Name(), m) {
			return loc, out, nil
		}
	}

	vars, err := frame.VisibleVariables()
	if err != nil {
		// Without debug info the declaring type's methods are all we have.
		return loc, out, nil
	}
	target, err := s.Target()
	if err != nil {
		return nil, nil, err
	}
	for _, v := range vars {
		for _, ref := range target.ClassesByName(v.TypeName()) {
			for _, m := range ref.Methods() {
				if !add(ref.Name(), m) {
					return loc, out, nil
				}
			}
		}
	}
	return loc, out, nil
}

// SmartStepInto steps into a specific method on the current line: any
// previous step request on the thread is deleted, a step-INTO with an
// optional class filter and count 1 is created, the stop reason cleared
// and the target resumed.
func (s *Session) SmartStepInto(threadID int64, targetClass string) (jdi.ThreadRef, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	thread, err := s.FirstSuspendedThread(threadID)
	if err != nil {
		return nil, err
	}

	s.deleteStepRequests(target, thread)

	req, err := target.CreateStep(thread, jdi.StepInto, targetClass, 1)
	if err != nil {
		return nil, errors.Internal(err)
	}
	req.SetSuspendPolicy(jdi.SuspendAll)
	req.Enable()

	s.ClearStopReason()
	target.Resume()
	return thread, nil
}

// ExecutionLocation describes where a suspended thread currently stands.
type ExecutionLocation struct {
	Thread     jdi.ThreadRef
	Location   jdi.Location
	FrameCount int
}

// CurrentLocation reports the top-frame location of a suspended thread.
func (s *Session) CurrentLocation(threadID int64) (*ExecutionLocation, error) {
	thread, err := s.FirstSuspendedThread(threadID)
	if err != nil {
		return nil, err
	}
	count, err := thread.FrameCount()
	if err != nil || count == 0 {
		return nil, errors.Wrap(errors.CodeThreadNotSuspended,
			fmt.Sprintf("thread '%s' has no frames", thread.Name()),
			"The thread may be running or have an empty stack.", err)
	}
	frame, err := thread.Frame(0)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &ExecutionLocation{Thread: thread, Location: frame.Location(), FrameCount: count}, nil
}
