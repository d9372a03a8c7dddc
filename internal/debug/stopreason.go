package debug

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// StopKind classifies why the debugger suspended the target.
type StopKind string

const (
	StopNone             StopKind = "NONE"
	StopBreakpointHit    StopKind = "BREAKPOINT_HIT"
	StopStepComplete     StopKind = "STEP_COMPLETE"
	StopExceptionThrown  StopKind = "EXCEPTION_THROWN"
	StopWatchpointAccess StopKind = "WATCHPOINT_ACCESS"
	StopWatchpointModify StopKind = "WATCHPOINT_MODIFY"
	StopMethodEntry      StopKind = "METHOD_ENTRY"
	StopMethodExit       StopKind = "METHOD_EXIT"
	StopUserSuspend      StopKind = "USER_SUSPEND"
	StopVMStart          StopKind = "VM_START"
	StopVMDisconnect     StopKind = "VM_DISCONNECT"
)

// Detail is one key/value pair of stop context. Details keep their
// insertion order so rendered output reads the way it was built.
type Detail struct {
	Key   string
	Value string
}

// StopReason records why the target stopped. It is immutable once built;
// the session publishes it to waiters of wait_for_stop.
//
// This is crucial for LLM debugging: it tells the agent WHY execution
// stopped so it knows what to do next.
type StopReason struct {
	kind      StopKind
	timestamp time.Time
	thread    jdi.ThreadRef
	location  jdi.Location
	details   []Detail
}

// NoReason returns the sentinel "not stopped" reason.
func NoReason() *StopReason {
	return &StopReason{kind: StopNone, timestamp: time.Now()}
}

// UserSuspendReason records an explicit suspend call.
func UserSuspendReason() *StopReason {
	return &StopReason{kind: StopUserSuspend, timestamp: time.Now()}
}

// VMStartReason records the initial VM start event. Treated as a stop so
// that a session attached with suspend-on-start can place breakpoints
// before any code runs.
func VMStartReason(thread jdi.ThreadRef) *StopReason {
	return &StopReason{kind: StopVMStart, timestamp: time.Now(), thread: thread}
}

// VMDisconnectReason records the end of the session.
func VMDisconnectReason() *StopReason {
	return &StopReason{kind: StopVMDisconnect, timestamp: time.Now()}
}

// BreakpointLookup recovers a broker breakpoint id from an event location.
type BreakpointLookup interface {
	FindByLocation(loc jdi.Location) string
}

// StopReasonFromEvent classifies a stop event. It returns nil for events
// that are not stop events (class prepare, thread lifecycle, ...).
func StopReasonFromEvent(ev jdi.Event, bps BreakpointLookup) *StopReason {
	switch e := ev.(type) {
	case jdi.BreakpointEvent:
		r := &StopReason{
			kind:      StopBreakpointHit,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		r.put("class", e.Location().DeclaringType().Name())
		r.put("method", e.Location().Method().Name())
		r.put("line", strconv.Itoa(e.Location().LineNumber()))
		if bps != nil {
			if id := bps.FindByLocation(e.Location()); id != "" {
				r.put("breakpointId", id)
			}
		}
		return r

	case jdi.StepCompleteEvent:
		r := &StopReason{
			kind:      StopStepComplete,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		r.put("class", e.Location().DeclaringType().Name())
		r.put("method", e.Location().Method().Name())
		r.put("line", strconv.Itoa(e.Location().LineNumber()))
		return r

	case jdi.ExceptionEvent:
		r := &StopReason{
			kind:      StopExceptionThrown,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		if ex := e.Exception(); ex != nil {
			r.put("exceptionClass", ex.ReferenceType().Name())
		}
		if catchLoc := e.CatchLocation(); catchLoc != nil {
			r.put("caught", "true")
			r.put("catchClass", catchLoc.DeclaringType().Name())
			r.put("catchLine", strconv.Itoa(catchLoc.LineNumber()))
		} else {
			r.put("caught", "false")
		}
		return r

	case jdi.AccessWatchEvent:
		r := &StopReason{
			kind:      StopWatchpointAccess,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		r.put("field", e.Field().Name())
		r.put("fieldClass", e.Field().DeclaringTypeName())
		return r

	case jdi.ModifyWatchEvent:
		r := &StopReason{
			kind:      StopWatchpointModify,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		r.put("field", e.Field().Name())
		r.put("fieldClass", e.Field().DeclaringTypeName())
		r.put("newValue", valueToBeText(e.ValueToBe()))
		return r

	case jdi.MethodEntryEvent:
		r := &StopReason{
			kind:      StopMethodEntry,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		r.put("method", e.Method().Name())
		r.put("class", e.Location().DeclaringType().Name())
		r.put("signature", e.Method().Signature())
		return r

	case jdi.MethodExitEvent:
		r := &StopReason{
			kind:      StopMethodExit,
			timestamp: time.Now(),
			thread:    e.Thread(),
			location:  e.Location(),
		}
		r.put("method", e.Method().Name())
		r.put("class", e.Location().DeclaringType().Name())
		return r

	case jdi.VMStartEvent:
		return VMStartReason(e.Thread())
	}
	return nil
}

func valueToBeText(v jdi.Value) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case jdi.PrimitiveValue:
		return val.Literal()
	case jdi.StringValue:
		return val.Text()
	case jdi.ObjectValue:
		return fmt.Sprintf("%s @%d", val.TypeName(), val.UniqueID())
	}
	return "(unknown)"
}

func (r *StopReason) put(key, value string) {
	r.details = append(r.details, Detail{Key: key, Value: value})
}

// Kind returns the stop classification.
func (r *StopReason) Kind() StopKind { return r.kind }

// Timestamp returns when the reason was recorded.
func (r *StopReason) Timestamp() time.Time { return r.timestamp }

// Thread is the thread the event fired on; nil for session-level reasons.
func (r *StopReason) Thread() jdi.ThreadRef { return r.thread }

// Location is where the event fired; nil when not applicable.
func (r *StopReason) Location() jdi.Location { return r.location }

// Details returns the ordered context pairs.
func (r *StopReason) Details() []Detail {
	out := make([]Detail, len(r.details))
	copy(out, r.details)
	return out
}

// Detail looks up a single context value ("" if absent).
func (r *StopReason) Detail(key string) string {
	for _, d := range r.details {
		if d.Key == key {
			return d.Value
		}
	}
	return ""
}

// IsStopped reports whether this reason represents a suspension.
func (r *StopReason) IsStopped() bool {
	return r != nil && r.kind != StopNone
}

// ThreadName is the stopped thread's name, or "".
func (r *StopReason) ThreadName() string {
	if r.thread == nil {
		return ""
	}
	return r.thread.Name()
}

// ThreadID is the stopped thread's unique id, or -1.
func (r *StopReason) ThreadID() int64 {
	if r.thread == nil {
		return -1
	}
	return r.thread.UniqueID()
}

func (r *StopReason) String() string {
	var sb strings.Builder
	sb.WriteString(string(r.kind))

	if r.thread != nil {
		fmt.Fprintf(&sb, " [thread: %s]", r.ThreadName())
	}
	if r.location != nil {
		fmt.Fprintf(&sb, " at %s:%d", r.location.DeclaringType().Name(), r.location.LineNumber())
	}
	if len(r.details) > 0 {
		sb.WriteString(" {")
		for i, d := range r.details {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.Key)
			sb.WriteString("=")
			sb.WriteString(d.Value)
		}
		sb.WriteString("}")
	}
	return sb.String()
}
