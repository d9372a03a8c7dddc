package debug

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

const (
	tagExceptionBreakID = "exceptionBreakpointId"

	// WildcardException matches every throwable.
	WildcardException = "*"

	throwableClass = "java.lang.Throwable"
)

// ExceptionBreakpointRecord tracks one exception breakpoint. Exception
// breakpoints never defer: the named class must already be loaded (or be
// the wildcard).
type ExceptionBreakpointRecord struct {
	ID            string
	ClassName     string
	CatchCaught   bool
	CatchUncaught bool
	Enabled       bool

	handle jdi.Request
}

// ExceptionBreakpoints is the registry of exception breakpoints. IDs use
// the "ex-" prefix.
type ExceptionBreakpoints struct {
	mu       sync.Mutex
	records  map[string]*ExceptionBreakpointRecord
	byHandle map[jdi.Request]string
	counter  int64

	log *logrus.Entry
}

// NewExceptionBreakpoints creates an empty registry.
func NewExceptionBreakpoints(log *logrus.Entry) *ExceptionBreakpoints {
	return &ExceptionBreakpoints{
		records:  make(map[string]*ExceptionBreakpointRecord),
		byHandle: make(map[jdi.Request]string),
		log:      log.WithField("registry", "exceptions"),
	}
}

// Set places an exception breakpoint. An empty or "*" class name creates
// a catch-all request. At least one of caught/uncaught must be true.
func (r *ExceptionBreakpoints) Set(t jdi.Target, className string, caught, uncaught bool) (*ExceptionBreakpointRecord, error) {
	if !caught && !uncaught {
		return nil, errors.InvalidParameter("caught/uncaught", false, "at least one of caught or uncaught must be true")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	catchAll := className == "" || className == WildcardException
	stored := className
	if catchAll {
		stored = WildcardException
	}

	for _, rec := range r.records {
		if rec.ClassName == stored && rec.CatchCaught == caught && rec.CatchUncaught == uncaught {
			return rec.clone(), nil
		}
	}

	var excType jdi.TypeRef
	if !catchAll {
		classes := t.ClassesByName(className)
		if len(classes) == 0 {
			return nil, errors.ClassNotFound(className)
		}
		excType = classes[0]
		if !isThrowable(excType) {
			return nil, errors.NotThrowable(className)
		}
	}

	handle, err := t.CreateException(excType, caught, uncaught)
	if err != nil {
		return nil, errors.Internal(err)
	}

	r.counter++
	id := fmt.Sprintf("ex-%d", r.counter)
	handle.SetSuspendPolicy(jdi.SuspendAll)
	handle.PutTag(tagExceptionBreakID, id)
	handle.Enable()

	rec := &ExceptionBreakpointRecord{ID: id, ClassName: stored, CatchCaught: caught, CatchUncaught: uncaught, Enabled: true, handle: handle}
	r.records[id] = rec
	r.byHandle[handle] = id
	r.log.WithFields(logrus.Fields{"id": id, "class": stored}).Info("exception breakpoint set")
	return rec.clone(), nil
}

// isThrowable walks the superclass chain looking for java.lang.Throwable.
func isThrowable(ref jdi.TypeRef) bool {
	for cur := ref; cur != nil; cur = cur.Superclass() {
		if cur.Name() == throwableClass {
			return true
		}
	}
	return false
}

// Remove deletes an exception breakpoint and its adapter request.
func (r *ExceptionBreakpoints) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("exception breakpoint", id)
	}
	delete(r.records, id)
	if rec.handle != nil {
		delete(r.byHandle, rec.handle)
		rec.handle.Delete()
	}
	return nil
}

// Enable turns an exception breakpoint on. Idempotent.
func (r *ExceptionBreakpoints) Enable(id string) error { return r.setEnabled(id, true) }

// Disable turns an exception breakpoint off. Idempotent.
func (r *ExceptionBreakpoints) Disable(id string) error { return r.setEnabled(id, false) }

func (r *ExceptionBreakpoints) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("exception breakpoint", id)
	}
	rec.Enabled = enabled
	if rec.handle != nil {
		if enabled {
			rec.handle.Enable()
		} else {
			rec.handle.Disable()
		}
	}
	return nil
}

// Get returns a snapshot of one record, or nil.
func (r *ExceptionBreakpoints) Get(id string) *ExceptionBreakpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return rec.clone()
	}
	return nil
}

// All returns a snapshot of every record.
func (r *ExceptionBreakpoints) All() []*ExceptionBreakpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ExceptionBreakpointRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// ClearAll deletes every adapter request and empties the registry.
func (r *ExceptionBreakpoints) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.handle != nil {
			rec.handle.Delete()
		}
	}
	r.records = make(map[string]*ExceptionBreakpointRecord)
	r.byHandle = make(map[jdi.Request]string)
}

func (e *ExceptionBreakpointRecord) clone() *ExceptionBreakpointRecord {
	c := *e
	return &c
}

// StateName renders the user-visible state.
func (e *ExceptionBreakpointRecord) StateName() string {
	if e.Enabled {
		return "enabled"
	}
	return "disabled"
}
