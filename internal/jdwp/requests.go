package jdwp

import (
	"sync"

	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// modifier is one event request modifier, pre-encoded.
type modifier func(w *writer)

// request implements jdi.Request. JDWP arms a request the moment it is
// set, so the broker-side create/enable split is realised by deferring
// the EventRequest.Set command until Enable. Disable clears it; a later
// Enable sets it again under a fresh wire id.
type request struct {
	t         *target
	eventKind byte
	policy    byte
	modifiers []modifier
	thread    jdi.ThreadRef

	mu      sync.Mutex
	wireID  int32
	enabled bool
	deleted bool
	tags    map[string]string
}

func (t *target) newRequest(eventKind byte, thread jdi.ThreadRef, mods ...modifier) *request {
	return &request{
		t:         t,
		eventKind: eventKind,
		policy:    suspendPolicyNone,
		modifiers: mods,
		thread:    thread,
		tags:      make(map[string]string),
	}
}

func (r *request) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled || r.deleted {
		return
	}

	w := r.t.w()
	w.byteVal(r.eventKind)
	w.byteVal(r.policy)
	w.int32(int32(len(r.modifiers)))
	for _, mod := range r.modifiers {
		mod(w)
	}

	reply, err := r.t.send(cmdSetEventRequest, eventRequestSet, w.data)
	if err != nil {
		r.t.log.WithError(err).Debug("jdwp: event request set failed")
		return
	}
	r.wireID = reply.int32()
	r.enabled = true
	r.t.trackRequest(r)
}

func (r *request) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *request) clearLocked() {
	if !r.enabled {
		return
	}
	_, _ = r.t.send(cmdSetEventRequest, eventRequestClear,
		r.t.w().byteVal(r.eventKind).int32(r.wireID).data)
	r.t.untrackRequest(r.wireID)
	r.enabled = false
	r.wireID = 0
}

func (r *request) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *request) Delete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return
	}
	r.clearLocked()
	r.deleted = true
	r.t.untrackStep(r)
}

func (r *request) SetSuspendPolicy(p jdi.SuspendPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch p {
	case jdi.SuspendAll:
		r.policy = suspendPolicyAll
	case jdi.SuspendEventThread:
		r.policy = suspendPolicyEventThread
	default:
		r.policy = suspendPolicyNone
	}
}

func (r *request) PutTag(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[key] = value
}

func (r *request) Tag(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tags[key]
}

func (r *request) Thread() jdi.ThreadRef { return r.thread }

// --- target-side request bookkeeping ---

func (t *target) trackRequest(r *request) {
	t.reqMu.Lock()
	defer t.reqMu.Unlock()
	t.requests[r.wireID] = r
	if r.eventKind == evSingleStep {
		for _, existing := range t.steps {
			if existing == r {
				return
			}
		}
		t.steps = append(t.steps, r)
	}
}

func (t *target) untrackRequest(wireID int32) {
	t.reqMu.Lock()
	defer t.reqMu.Unlock()
	delete(t.requests, wireID)
}

func (t *target) untrackStep(r *request) {
	t.reqMu.Lock()
	defer t.reqMu.Unlock()
	for i, s := range t.steps {
		if s == r {
			t.steps = append(t.steps[:i], t.steps[i+1:]...)
			return
		}
	}
}

func (t *target) requestByWireID(id int32) *request {
	t.reqMu.Lock()
	defer t.reqMu.Unlock()
	return t.requests[id]
}

func (t *target) StepRequests() []jdi.Request {
	t.reqMu.Lock()
	defer t.reqMu.Unlock()
	out := make([]jdi.Request, len(t.steps))
	for i, s := range t.steps {
		out[i] = s
	}
	return out
}

// --- request factories ---

func (t *target) CreateBreakpoint(loc jdi.Location) (jdi.Request, error) {
	l, ok := loc.(*location)
	if !ok {
		return nil, errForeign("location")
	}
	wl := l.wire()
	return t.newRequest(evBreakpoint, nil, func(w *writer) {
		w.byteVal(modLocationOnly)
		w.location(wl)
	}), nil
}

func (t *target) CreateAccessWatch(f jdi.FieldRef) (jdi.Request, error) {
	field, ok := f.(*fieldRef)
	if !ok {
		return nil, errForeign("field")
	}
	return t.newRequest(evFieldAccess, nil, fieldOnlyMod(field)), nil
}

func (t *target) CreateModifyWatch(f jdi.FieldRef) (jdi.Request, error) {
	field, ok := f.(*fieldRef)
	if !ok {
		return nil, errForeign("field")
	}
	return t.newRequest(evFieldModify, nil, fieldOnlyMod(field)), nil
}

func fieldOnlyMod(field *fieldRef) modifier {
	classID := field.owner.id
	fieldID := field.id
	return func(w *writer) {
		w.byteVal(modFieldOnly)
		w.refTypeID(classID)
		w.fieldID(fieldID)
	}
}

func (t *target) CreateMethodEntry(classFilter jdi.TypeRef) (jdi.Request, error) {
	return t.classFilteredRequest(evMethodEntry, classFilter)
}

func (t *target) CreateMethodExit(classFilter jdi.TypeRef) (jdi.Request, error) {
	return t.classFilteredRequest(evMethodExit, classFilter)
}

func (t *target) classFilteredRequest(eventKind byte, classFilter jdi.TypeRef) (jdi.Request, error) {
	var mods []modifier
	if classFilter != nil {
		ref, ok := classFilter.(*typeRef)
		if !ok {
			return nil, errForeign("type")
		}
		classID := ref.id
		mods = append(mods, func(w *writer) {
			w.byteVal(modClassOnly)
			w.refTypeID(classID)
		})
	}
	return t.newRequest(eventKind, nil, mods...), nil
}

func (t *target) CreateException(exc jdi.TypeRef, caught, uncaught bool) (jdi.Request, error) {
	var classID uint64
	if exc != nil {
		ref, ok := exc.(*typeRef)
		if !ok {
			return nil, errForeign("type")
		}
		classID = ref.id
	}
	return t.newRequest(evException, nil, func(w *writer) {
		w.byteVal(modExceptionOnly)
		w.refTypeID(classID)
		w.boolVal(caught)
		w.boolVal(uncaught)
	}), nil
}

func (t *target) CreateClassPrepareWatch(classFilter string) (jdi.Request, error) {
	return t.patternFilteredRequest(evClassPrepare, classFilter)
}

func (t *target) CreateClassUnloadWatch(classFilter string) (jdi.Request, error) {
	return t.patternFilteredRequest(evClassUnload, classFilter)
}

func (t *target) patternFilteredRequest(eventKind byte, classFilter string) (jdi.Request, error) {
	var mods []modifier
	if classFilter != "" {
		pattern := classFilter
		mods = append(mods, func(w *writer) {
			w.byteVal(modClassMatch)
			w.stringVal(pattern)
		})
	}
	return t.newRequest(eventKind, nil, mods...), nil
}

func (t *target) CreateThreadStartWatch() (jdi.Request, error) {
	return t.newRequest(evThreadStart, nil), nil
}

func (t *target) CreateThreadDeathWatch() (jdi.Request, error) {
	return t.newRequest(evThreadDeath, nil), nil
}

func (t *target) CreateMonitorContendWatch() (jdi.Request, error) {
	return t.newRequest(evMonitorContended, nil), nil
}

func (t *target) CreateStep(thread jdi.ThreadRef, depth jdi.StepDepth, classFilter string, count int) (jdi.Request, error) {
	th, ok := thread.(*threadRef)
	if !ok {
		return nil, errForeign("thread")
	}

	wireDepth := stepDepthInto
	switch depth {
	case jdi.StepOver:
		wireDepth = stepDepthOver
	case jdi.StepOut:
		wireDepth = stepDepthOut
	}

	threadID := th.id
	mods := []modifier{func(w *writer) {
		w.byteVal(modStep)
		w.objectID(threadID)
		w.int32(stepSizeLine)
		w.int32(int32(wireDepth))
	}}
	if classFilter != "" {
		pattern := classFilter
		mods = append(mods, func(w *writer) {
			w.byteVal(modClassMatch)
			w.stringVal(pattern)
		})
	}
	if count > 0 {
		n := int32(count)
		mods = append(mods, func(w *writer) {
			w.byteVal(modCount)
			w.int32(n)
		})
	}
	return t.newRequest(evSingleStep, thread, mods...), nil
}

type foreignRefError string

func (e foreignRefError) Error() string { return "jdwp: foreign " + string(e) + " ref" }

func errForeign(kind string) error { return foreignRefError(kind) }
