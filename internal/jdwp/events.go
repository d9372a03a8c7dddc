package jdwp

import (
	"time"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// eventQueue adapts the connection's event channel to the pull API the
// core pump drains.
type eventQueue struct {
	t *target
}

func (q *eventQueue) Remove(timeout time.Duration) (jdi.EventSet, error) {
	r, err := q.t.c.nextEvent(timeout)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return q.t.parseComposite(r)
}

// eventSet is one decoded composite.
type eventSet struct {
	t      *target
	policy jdi.SuspendPolicy
	events []jdi.Event
}

func (s *eventSet) Events() []jdi.Event { return s.events }
func (s *eventSet) SuspendPolicy() jdi.SuspendPolicy { return s.policy }

// Resume undoes the suspension this set caused. Suspend counts make this
// a no-op for SuspendNone sets.
func (s *eventSet) Resume() {
	switch s.policy {
	case jdi.SuspendAll:
		s.t.Resume()
	case jdi.SuspendEventThread:
		for _, ev := range s.events {
			if te, ok := ev.(interface{ Thread() jdi.ThreadRef }); ok {
				if th := te.Thread(); th != nil {
					th.Resume()
					return
				}
			}
		}
	}
}

// parseComposite decodes an Event.Composite payload into mirrors.
func (t *target) parseComposite(r *reader) (*eventSet, error) {
	set := &eventSet{t: t}
	switch r.byteVal() {
	case suspendPolicyAll:
		set.policy = jdi.SuspendAll
	case suspendPolicyEventThread:
		set.policy = jdi.SuspendEventThread
	default:
		set.policy = jdi.SuspendNone
	}

	count := int(r.int32())
	for i := 0; i < count; i++ {
		kind := r.byteVal()
		wireID := r.int32()
		req := t.requestByWireID(wireID)
		base := baseEvent{req: req}

		switch kind {
		case evVMStart:
			threadID := r.objectID()
			set.events = append(set.events, &vmStartEvent{base, t.thread(threadID)})

		case evVMDeath:
			set.events = append(set.events, &vmDeathEvent{base})

		case evSingleStep:
			set.events = append(set.events, &stepEvent{base, t.thread(r.objectID()), t.eventLocation(r.location())})

		case evBreakpoint:
			set.events = append(set.events, &breakpointEvent{base, t.thread(r.objectID()), t.eventLocation(r.location())})

		case evMethodEntry:
			loc := locatedPair{t.thread(r.objectID()), t.eventLocation(r.location())}
			set.events = append(set.events, &methodEntryEvent{base, loc})

		case evMethodExit:
			loc := locatedPair{t.thread(r.objectID()), t.eventLocation(r.location())}
			set.events = append(set.events, &methodExitEvent{base, loc})

		case evException:
			thread := t.thread(r.objectID())
			loc := t.eventLocation(r.location())
			exc, _ := t.taggedValue(r).(jdi.ObjectValue)
			catchWire := r.location()
			var catchLoc jdi.Location
			if catchWire.classID != 0 {
				if cl := t.eventLocation(catchWire); cl != nil {
					catchLoc = cl
				}
			}
			set.events = append(set.events, &exceptionEvent{base, thread, loc, exc, catchLoc})

		case evFieldAccess:
			thread := t.thread(r.objectID())
			loc := t.eventLocation(r.location())
			field := t.eventField(r)
			t.taggedValue(r) // object the field belongs to; unused
			set.events = append(set.events, &accessWatchEvent{base, thread, loc, field})

		case evFieldModify:
			thread := t.thread(r.objectID())
			loc := t.eventLocation(r.location())
			field := t.eventField(r)
			t.taggedValue(r) // object the field belongs to; unused
			valueToBe := t.taggedValue(r)
			set.events = append(set.events, &modifyWatchEvent{base, thread, loc, field, valueToBe})

		case evThreadStart:
			set.events = append(set.events, &threadStartEvent{base, t.thread(r.objectID())})

		case evThreadDeath:
			set.events = append(set.events, &threadDeathEvent{base, t.thread(r.objectID())})

		case evClassPrepare:
			thread := t.thread(r.objectID())
			tag := r.byteVal()
			typeID := r.refTypeID()
			sig := r.stringVal()
			r.int32() // status
			ref := t.typeRefBySignature(typeID, tag, sig)
			set.events = append(set.events, &classPrepareEvent{base, thread, ref})

		case evClassUnload:
			sig := r.stringVal()
			set.events = append(set.events, &classUnloadEvent{base, signatureToName(sig)})

		case evMonitorContended:
			thread := t.thread(r.objectID())
			mon, _ := t.taggedValue(r).(jdi.ObjectValue)
			r.location() // contention site; unused
			set.events = append(set.events, &monitorContendEvent{base, thread, mon})

		case evMonitorWait:
			thread := t.thread(r.objectID())
			mon, _ := t.taggedValue(r).(jdi.ObjectValue)
			r.location()
			timeout := r.int64Val()
			set.events = append(set.events, &monitorWaitEvent{base, thread, mon, timeout})

		default:
			// Unknown kinds cannot be skipped safely: their payload width
			// is unknown, so the rest of the composite is unreadable.
			t.log.Warnf("jdwp: unknown event kind %d, dropping rest of composite", kind)
			return set, nil
		}
	}
	return set, nil
}

func (t *target) thread(id uint64) jdi.ThreadRef {
	if id == 0 {
		return nil
	}
	return &threadRef{t: t, id: id}
}

// eventField reads the (typeTag, typeID, fieldID) triple of field events.
func (t *target) eventField(r *reader) jdi.FieldRef {
	tag := r.byteVal()
	typeID := r.refTypeID()
	fieldID := r.fieldID()
	ref := t.typeRefByID(typeID, tag)
	if ref == nil {
		return nil
	}
	ref.load()
	for _, f := range ref.fields {
		if f.id == fieldID {
			return f
		}
	}
	return nil
}

// --- event mirrors ---

type baseEvent struct {
	req *request
}

func (e baseEvent) Request() jdi.Request {
	if e.req == nil {
		return nil
	}
	return e.req
}

type locatedPair struct {
	thread jdi.ThreadRef
	loc    jdi.Location
}

type vmStartEvent struct {
	baseEvent
	thread jdi.ThreadRef
}

func (e *vmStartEvent) Thread() jdi.ThreadRef { return e.thread }

type vmDeathEvent struct{ baseEvent }

type stepEvent struct {
	baseEvent
	thread jdi.ThreadRef
	loc    jdi.Location
}

func (e *stepEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *stepEvent) Location() jdi.Location { return e.loc }

type breakpointEvent struct {
	baseEvent
	thread jdi.ThreadRef
	loc    jdi.Location
}

func (e *breakpointEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *breakpointEvent) Location() jdi.Location { return e.loc }

type methodEntryEvent struct {
	baseEvent
	locatedPair
}

func (e *methodEntryEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *methodEntryEvent) Location() jdi.Location { return e.loc }
func (e *methodEntryEvent) Method() jdi.MethodRef { return e.loc.Method() }

type methodExitEvent struct {
	baseEvent
	locatedPair
}

func (e *methodExitEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *methodExitEvent) Location() jdi.Location { return e.loc }
func (e *methodExitEvent) Method() jdi.MethodRef { return e.loc.Method() }

type exceptionEvent struct {
	baseEvent
	thread   jdi.ThreadRef
	loc      jdi.Location
	exc      jdi.ObjectValue
	catchLoc jdi.Location
}

func (e *exceptionEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *exceptionEvent) Location() jdi.Location { return e.loc }
func (e *exceptionEvent) Exception() jdi.ObjectValue { return e.exc }
func (e *exceptionEvent) CatchLocation() jdi.Location { return e.catchLoc }

type accessWatchEvent struct {
	baseEvent
	thread jdi.ThreadRef
	loc    jdi.Location
	field  jdi.FieldRef
}

func (e *accessWatchEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *accessWatchEvent) Location() jdi.Location { return e.loc }
func (e *accessWatchEvent) Field() jdi.FieldRef { return e.field }

type modifyWatchEvent struct {
	baseEvent
	thread    jdi.ThreadRef
	loc       jdi.Location
	field     jdi.FieldRef
	valueToBe jdi.Value
}

func (e *modifyWatchEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *modifyWatchEvent) Location() jdi.Location { return e.loc }
func (e *modifyWatchEvent) Field() jdi.FieldRef { return e.field }
func (e *modifyWatchEvent) ValueToBe() jdi.Value { return e.valueToBe }

type threadStartEvent struct {
	baseEvent
	thread jdi.ThreadRef
}

func (e *threadStartEvent) Thread() jdi.ThreadRef { return e.thread }

type threadDeathEvent struct {
	baseEvent
	thread jdi.ThreadRef
}

func (e *threadDeathEvent) Thread() jdi.ThreadRef { return e.thread }

type classPrepareEvent struct {
	baseEvent
	thread jdi.ThreadRef
	ref    jdi.TypeRef
}

func (e *classPrepareEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *classPrepareEvent) ReferenceType() jdi.TypeRef { return e.ref }

type classUnloadEvent struct {
	baseEvent
	className string
}

func (e *classUnloadEvent) ClassName() string { return e.className }

type monitorContendEvent struct {
	baseEvent
	thread  jdi.ThreadRef
	monitor jdi.ObjectValue
}

func (e *monitorContendEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *monitorContendEvent) Monitor() jdi.ObjectValue { return e.monitor }

type monitorWaitEvent struct {
	baseEvent
	thread  jdi.ThreadRef
	monitor jdi.ObjectValue
	timeout int64
}

func (e *monitorWaitEvent) Thread() jdi.ThreadRef { return e.thread }
func (e *monitorWaitEvent) Monitor() jdi.ObjectValue { return e.monitor }
func (e *monitorWaitEvent) TimeoutMs() int64 { return e.timeout }
