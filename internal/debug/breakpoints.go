package debug

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

const tagBreakpointID = "breakpointId"

// BreakpointRecord tracks one line breakpoint. A pending record has no
// adapter handle yet; it activates when its class is prepared.
type BreakpointRecord struct {
	ID        string
	ClassName string
	Line      int
	Enabled   bool
	Pending   bool
	HitCount  int64

	handle jdi.Request
}

// LineBreakpoints is the registry of line breakpoints. IDs use the "bp-"
// prefix and are never reused within a session.
type LineBreakpoints struct {
	mu       sync.Mutex
	records  map[string]*BreakpointRecord
	byHandle map[jdi.Request]string
	deferred map[string][]string // class name -> pending record ids
	counter  int64

	classPrepare jdi.Request
	log          *logrus.Entry
}

// NewLineBreakpoints creates an empty registry.
func NewLineBreakpoints(log *logrus.Entry) *LineBreakpoints {
	return &LineBreakpoints{
		records:  make(map[string]*BreakpointRecord),
		byHandle: make(map[jdi.Request]string),
		deferred: make(map[string][]string),
		log:      log.WithField("registry", "breakpoints"),
	}
}

// Set places a line breakpoint. If the class is not loaded yet the record
// is stored pending and resolves at class-prepare time. An equivalent
// active breakpoint returns the existing id.
func (r *LineBreakpoints) Set(t jdi.Target, className string, line int) (*BreakpointRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	classes := t.ClassesByName(className)
	if len(classes) == 0 {
		rec := r.deferLocked(t, className, line)
		return rec.clone(), nil
	}

	loc, err := resolveLine(classes[0], className, line)
	if err != nil {
		return nil, err
	}

	// De-duplicate against active records at the same location.
	for _, rec := range r.records {
		if rec.handle != nil && rec.ClassName == className && rec.Line == line {
			return rec.clone(), nil
		}
	}

	handle, err := t.CreateBreakpoint(loc)
	if err != nil {
		return nil, errors.Internal(err)
	}

	r.counter++
	id := fmt.Sprintf("bp-%d", r.counter)
	handle.SetSuspendPolicy(jdi.SuspendAll)
	handle.PutTag(tagBreakpointID, id)
	handle.Enable()

	rec := &BreakpointRecord{ID: id, ClassName: className, Line: line, Enabled: true, handle: handle}
	r.records[id] = rec
	r.byHandle[handle] = id
	return rec.clone(), nil
}

func resolveLine(ref jdi.TypeRef, className string, line int) (jdi.Location, error) {
	locs, err := ref.LocationsAtLine(line)
	if err != nil {
		if err == jdi.ErrAbsentInformation {
			return nil, errors.NoDebugInfo()
		}
		return nil, errors.Internal(err)
	}
	if len(locs) == 0 {
		return nil, errors.NoCodeAtLine(className, line)
	}
	return locs[0], nil
}

func (r *LineBreakpoints) deferLocked(t jdi.Target, className string, line int) *BreakpointRecord {
	r.counter++
	id := fmt.Sprintf("bp-%d", r.counter)
	rec := &BreakpointRecord{ID: id, ClassName: className, Line: line, Enabled: true, Pending: true}
	r.records[id] = rec
	r.deferred[className] = append(r.deferred[className], id)
	r.armClassPrepareLocked(t)
	r.log.WithFields(logrus.Fields{"id": id, "class": className, "line": line}).Debug("breakpoint deferred")
	return rec
}

// armClassPrepareLocked ensures one class-prepare watch exists so the pump
// learns about newly prepared classes. One per registry is sufficient.
func (r *LineBreakpoints) armClassPrepareLocked(t jdi.Target) {
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

// Remove deletes a breakpoint and its adapter request.
func (r *LineBreakpoints) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("breakpoint", id)
	}
	delete(r.records, id)
	r.dropDeferredLocked(rec.ClassName, id)
	if rec.handle != nil {
		delete(r.byHandle, rec.handle)
		rec.handle.Delete()
	}
	return nil
}

// Enable turns a breakpoint on. Idempotent.
func (r *LineBreakpoints) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable turns a breakpoint off without removing it. Idempotent.
func (r *LineBreakpoints) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *LineBreakpoints) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("breakpoint", id)
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
func (r *LineBreakpoints) Get(id string) *BreakpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return rec.clone()
	}
	return nil
}

// All returns a snapshot of every record.
func (r *LineBreakpoints) All() []*BreakpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*BreakpointRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// PendingCount reports how many records still await their class.
func (r *LineBreakpoints) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Pending {
			n++
		}
	}
	return n
}

// FindByLocation recovers the breakpoint id for a hit location. Used by
// stop-reason construction; "" when no active record matches.
func (r *LineBreakpoints) FindByLocation(loc jdi.Location) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.handle == nil {
			continue
		}
		if rec.ClassName == loc.DeclaringType().Name() && rec.Line == loc.LineNumber() {
			return rec.ID
		}
	}
	return ""
}

// RecordHit bumps the hit counter for the record matching a hit location.
func (r *LineBreakpoints) RecordHit(loc jdi.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.handle != nil && rec.ClassName == loc.DeclaringType().Name() && rec.Line == loc.LineNumber() {
			rec.HitCount++
			return
		}
	}
}

// OnClassPrepare resolves deferred breakpoints for a newly prepared class.
// Called only from the event pump. Individual resolution failures leave
// the record pending.
func (r *LineBreakpoints) OnClassPrepare(t jdi.Target, ref jdi.TypeRef) {
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
		locs, err := ref.LocationsAtLine(rec.Line)
		if err != nil || len(locs) == 0 {
			r.log.WithField("id", id).Debug("deferred breakpoint still unresolvable")
			continue
		}
		handle, err := t.CreateBreakpoint(locs[0])
		if err != nil {
			r.log.WithField("id", id).WithError(err).Debug("deferred breakpoint activation failed")
			continue
		}
		handle.SetSuspendPolicy(jdi.SuspendAll)
		handle.PutTag(tagBreakpointID, id)
		if rec.Enabled {
			handle.Enable()
		}
		rec.handle = handle
		rec.Pending = false
		r.byHandle[handle] = id
		r.log.WithFields(logrus.Fields{"id": id, "class": ref.Name()}).Info("deferred breakpoint activated")
	}
}

// ClearAll deletes every adapter request and empties the registry.
// Per-record adapter errors are best-effort ignored.
func (r *LineBreakpoints) ClearAll() {
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
	r.records = make(map[string]*BreakpointRecord)
	r.byHandle = make(map[jdi.Request]string)
	r.deferred = make(map[string][]string)
}

func (r *LineBreakpoints) dropDeferredLocked(className, id string) {
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

func (b *BreakpointRecord) clone() *BreakpointRecord {
	c := *b
	return &c
}

// StateName renders the user-visible breakpoint state.
func (b *BreakpointRecord) StateName() string {
	switch {
	case b.Pending:
		return "pending"
	case b.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}
