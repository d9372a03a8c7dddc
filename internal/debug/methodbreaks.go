package debug

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

const (
	tagMethodBreakID   = "methodBreakpointId"
	tagMethodBreakName = "methodName"

	// WildcardMethod matches every method of the class.
	WildcardMethod = "*"
)

// MethodBreakKind distinguishes entry from exit breakpoints.
type MethodBreakKind string

const (
	MethodEntry MethodBreakKind = "ENTRY"
	MethodExit  MethodBreakKind = "EXIT"
)

func (k MethodBreakKind) prefix() string {
	if k == MethodEntry {
		return "me-"
	}
	return "mx-"
}

// MethodBreakpointRecord tracks one method entry/exit breakpoint.
type MethodBreakpointRecord struct {
	ID         string
	ClassName  string
	MethodName string
	Kind       MethodBreakKind
	Enabled    bool
	Pending    bool

	handle jdi.Request
}

// MethodBreakpoints is the registry of method entry/exit breakpoints.
// Entry ids use "me-", exit ids "mx-".
type MethodBreakpoints struct {
	mu       sync.Mutex
	records  map[string]*MethodBreakpointRecord
	byHandle map[jdi.Request]string
	deferred map[string][]string
	counter  int64

	classPrepare jdi.Request
	log          *logrus.Entry
}

// NewMethodBreakpoints creates an empty registry.
func NewMethodBreakpoints(log *logrus.Entry) *MethodBreakpoints {
	return &MethodBreakpoints{
		records:  make(map[string]*MethodBreakpointRecord),
		byHandle: make(map[jdi.Request]string),
		deferred: make(map[string][]string),
		log:      log.WithField("registry", "methodbreaks"),
	}
}

// SetEntry places a method entry breakpoint. methodName may be "*".
func (r *MethodBreakpoints) SetEntry(t jdi.Target, className, methodName string) (*MethodBreakpointRecord, error) {
	return r.set(t, className, methodName, MethodEntry)
}

// SetExit places a method exit breakpoint. methodName may be "*".
func (r *MethodBreakpoints) SetExit(t jdi.Target, className, methodName string) (*MethodBreakpointRecord, error) {
	return r.set(t, className, methodName, MethodExit)
}

func (r *MethodBreakpoints) set(t jdi.Target, className, methodName string, kind MethodBreakKind) (*MethodBreakpointRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	classes := t.ClassesByName(className)
	if len(classes) == 0 {
		rec := r.deferLocked(t, className, methodName, kind)
		return rec.clone(), nil
	}

	if methodName != WildcardMethod {
		if len(classes[0].MethodsByName(methodName)) == 0 {
			return nil, errors.MethodNotFound(className, methodName)
		}
	}

	for _, rec := range r.records {
		if rec.ClassName == className && rec.MethodName == methodName && rec.Kind == kind {
			return rec.clone(), nil
		}
	}

	handle, err := createMethodBreak(t, classes[0], kind)
	if err != nil {
		return nil, errors.Internal(err)
	}

	r.counter++
	id := fmt.Sprintf("%s%d", kind.prefix(), r.counter)
	handle.SetSuspendPolicy(jdi.SuspendAll)
	handle.PutTag(tagMethodBreakID, id)
	handle.PutTag(tagMethodBreakName, methodName)
	handle.Enable()

	rec := &MethodBreakpointRecord{ID: id, ClassName: className, MethodName: methodName, Kind: kind, Enabled: true, handle: handle}
	r.records[id] = rec
	r.byHandle[handle] = id
	return rec.clone(), nil
}

func createMethodBreak(t jdi.Target, ref jdi.TypeRef, kind MethodBreakKind) (jdi.Request, error) {
	if kind == MethodEntry {
		return t.CreateMethodEntry(ref)
	}
	return t.CreateMethodExit(ref)
}

func (r *MethodBreakpoints) deferLocked(t jdi.Target, className, methodName string, kind MethodBreakKind) *MethodBreakpointRecord {
	r.counter++
	id := fmt.Sprintf("%s%d", kind.prefix(), r.counter)
	rec := &MethodBreakpointRecord{ID: id, ClassName: className, MethodName: methodName, Kind: kind, Enabled: true, Pending: true}
	r.records[id] = rec
	r.deferred[className] = append(r.deferred[className], id)
	r.armClassPrepareLocked(t)
	r.log.WithFields(logrus.Fields{"id": id, "class": className, "method": methodName}).Debug("method breakpoint deferred")
	return rec
}

func (r *MethodBreakpoints) armClassPrepareLocked(t jdi.Target) {
	if r.classPrepare != nil {
		return
	}
	req, err := t.CreateClassPrepareWatch("")
	if err != nil {
		r.log.WithError(err).Warn("could not arm class prepare watch")
		return
	}
	req.SetSuspendPolicy(jdi.SuspendAll)
	req.Enable()
	r.classPrepare = req
}

// Remove deletes a method breakpoint and its adapter request.
func (r *MethodBreakpoints) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("method breakpoint", id)
	}
	delete(r.records, id)
	r.dropDeferredLocked(rec.ClassName, id)
	if rec.handle != nil {
		delete(r.byHandle, rec.handle)
		rec.handle.Delete()
	}
	return nil
}

// Get returns a snapshot of one record, or nil.
func (r *MethodBreakpoints) Get(id string) *MethodBreakpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return rec.clone()
	}
	return nil
}

// All returns a snapshot of every record.
func (r *MethodBreakpoints) All() []*MethodBreakpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*MethodBreakpointRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// MatchesMethod reports whether a fired entry/exit event at methodName on
// className belongs to a record, honouring the wildcard.
func (r *MethodBreakpoints) MatchesMethod(className, methodName string, kind MethodBreakKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.handle == nil || rec.Kind != kind || rec.ClassName != className {
			continue
		}
		if rec.MethodName == WildcardMethod || rec.MethodName == methodName {
			return true
		}
	}
	return false
}

// OnClassPrepare resolves deferred method breakpoints for a newly prepared
// class.
func (r *MethodBreakpoints) OnClassPrepare(t jdi.Target, ref jdi.TypeRef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.deferred[ref.Name()]
	if len(ids) == 0 {
		return
	}
	delete(r.deferred, ref.Name())

	for _, id := range ids {
		rec, ok := r.records[id]
		if !ok || !rec.Pending {
			continue
		}
		if rec.MethodName != WildcardMethod && len(ref.MethodsByName(rec.MethodName)) == 0 {
			r.log.WithField("id", id).Debug("deferred method breakpoint method still missing")
			continue
		}
		handle, err := createMethodBreak(t, ref, rec.Kind)
		if err != nil {
			r.log.WithField("id", id).WithError(err).Debug("deferred method breakpoint activation failed")
			continue
		}
		handle.SetSuspendPolicy(jdi.SuspendAll)
		handle.PutTag(tagMethodBreakID, id)
		handle.PutTag(tagMethodBreakName, rec.MethodName)
		if rec.Enabled {
			handle.Enable()
		}
		rec.handle = handle
		rec.Pending = false
		r.byHandle[handle] = id
	}
}

// ClearAll deletes every adapter request and empties the registry.
func (r *MethodBreakpoints) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.handle != nil {
			rec.handle.Delete()
		}
	}
	if r.classPrepare != nil {
		r.classPrepare.Delete()
		r.classPrepare = nil
	}
	r.records = make(map[string]*MethodBreakpointRecord)
	r.byHandle = make(map[jdi.Request]string)
	r.deferred = make(map[string][]string)
}

func (r *MethodBreakpoints) dropDeferredLocked(className, id string) {
	ids := r.deferred[className]
	for i, d := range ids {
		if d == id {
			r.deferred[className] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.deferred[className]) == 0 {
		delete(r.deferred, className)
	}
}

func (m *MethodBreakpointRecord) clone() *MethodBreakpointRecord {
	c := *m
	return &c
}

// StateName renders the user-visible state.
func (m *MethodBreakpointRecord) StateName() string {
	switch {
	case m.Pending:
		return "pending"
	case m.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}
