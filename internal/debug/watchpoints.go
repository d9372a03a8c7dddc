package debug

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

const tagWatchpointID = "watchpointId"

// WatchKind distinguishes access from modification watchpoints.
type WatchKind string

const (
	WatchAccess WatchKind = "ACCESS"
	WatchModify WatchKind = "MODIFY"
)

func (k WatchKind) prefix() string {
	if k == WatchAccess {
		return "wa-"
	}
	return "wm-"
}

// WatchpointRecord tracks one field watchpoint.
type WatchpointRecord struct {
	ID        string
	ClassName string
	FieldName string
	Kind      WatchKind
	Enabled   bool
	Pending   bool

	handle jdi.Request
}

// Watchpoints is the registry of field access/modification watchpoints.
// Access ids use "wa-", modification ids "wm-"; both share one counter.
type Watchpoints struct {
	mu       sync.Mutex
	records  map[string]*WatchpointRecord
	byHandle map[jdi.Request]string
	deferred map[string][]string
	counter  int64

	classPrepare jdi.Request
	log          *logrus.Entry
}

// NewWatchpoints creates an empty registry.
func NewWatchpoints(log *logrus.Entry) *Watchpoints {
	return &Watchpoints{
		records:  make(map[string]*WatchpointRecord),
		byHandle: make(map[jdi.Request]string),
		deferred: make(map[string][]string),
		log:      log.WithField("registry", "watchpoints"),
	}
}

// SetAccess places a field access watchpoint.
func (r *Watchpoints) SetAccess(t jdi.Target, className, fieldName string) (*WatchpointRecord, error) {
	return r.set(t, className, fieldName, WatchAccess)
}

// SetModify places a field modification watchpoint.
func (r *Watchpoints) SetModify(t jdi.Target, className, fieldName string) (*WatchpointRecord, error) {
	return r.set(t, className, fieldName, WatchModify)
}

func (r *Watchpoints) set(t jdi.Target, className, fieldName string, kind WatchKind) (*WatchpointRecord, error) {
	if kind == WatchAccess && !t.CanWatchFieldAccess() {
		return nil, errors.CapabilityMissing("field access watchpoints")
	}
	if kind == WatchModify && !t.CanWatchFieldModification() {
		return nil, errors.CapabilityMissing("field modification watchpoints")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	classes := t.ClassesByName(className)
	if len(classes) == 0 {
		rec := r.deferLocked(t, className, fieldName, kind)
		return rec.clone(), nil
	}

	field := classes[0].FieldByName(fieldName)
	if field == nil {
		return nil, errors.FieldNotFound(className, fieldName)
	}

	for _, rec := range r.records {
		if rec.ClassName == className && rec.FieldName == fieldName && rec.Kind == kind {
			return rec.clone(), nil
		}
	}

	handle, err := createWatch(t, field, kind)
	if err != nil {
		return nil, errors.Internal(err)
	}

	r.counter++
	id := fmt.Sprintf("%s%d", kind.prefix(), r.counter)
	handle.SetSuspendPolicy(jdi.SuspendAll)
	handle.PutTag(tagWatchpointID, id)
	handle.Enable()

	rec := &WatchpointRecord{ID: id, ClassName: className, FieldName: fieldName, Kind: kind, Enabled: true, handle: handle}
	r.records[id] = rec
	r.byHandle[handle] = id
	return rec.clone(), nil
}

func createWatch(t jdi.Target, field jdi.FieldRef, kind WatchKind) (jdi.Request, error) {
	if kind == WatchAccess {
		return t.CreateAccessWatch(field)
	}
	return t.CreateModifyWatch(field)
}

func (r *Watchpoints) deferLocked(t jdi.Target, className, fieldName string, kind WatchKind) *WatchpointRecord {
	r.counter++
	id := fmt.Sprintf("%s%d", kind.prefix(), r.counter)
	rec := &WatchpointRecord{ID: id, ClassName: className, FieldName: fieldName, Kind: kind, Enabled: true, Pending: true}
	r.records[id] = rec
	r.deferred[className] = append(r.deferred[className], id)
	r.armClassPrepareLocked(t)
	r.log.WithFields(logrus.Fields{"id": id, "class": className, "field": fieldName}).Debug("watchpoint deferred")
	return rec
}

func (r *Watchpoints) armClassPrepareLocked(t jdi.Target) {
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

// Remove deletes a watchpoint and its adapter request.
func (r *Watchpoints) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("watchpoint", id)
	}
	delete(r.records, id)
	r.dropDeferredLocked(rec.ClassName, id)
	if rec.handle != nil {
		delete(r.byHandle, rec.handle)
		rec.handle.Delete()
	}
	return nil
}

// Enable turns a watchpoint on. Idempotent.
func (r *Watchpoints) Enable(id string) error { return r.setEnabled(id, true) }

// Disable turns a watchpoint off. Idempotent.
func (r *Watchpoints) Disable(id string) error { return r.setEnabled(id, false) }

func (r *Watchpoints) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.IDNotFound("watchpoint", id)
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
func (r *Watchpoints) Get(id string) *WatchpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return rec.clone()
	}
	return nil
}

// All returns a snapshot of every record.
func (r *Watchpoints) All() []*WatchpointRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*WatchpointRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// OnClassPrepare resolves deferred watchpoints for a newly prepared class.
func (r *Watchpoints) OnClassPrepare(t jdi.Target, ref jdi.TypeRef) {
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
		field := ref.FieldByName(rec.FieldName)
		if field == nil {
			r.log.WithField("id", id).Debug("deferred watchpoint field still missing")
			continue
		}
		handle, err := createWatch(t, field, rec.Kind)
		if err != nil {
			r.log.WithField("id", id).WithError(err).Debug("deferred watchpoint activation failed")
			continue
		}
		handle.SetSuspendPolicy(jdi.SuspendAll)
		handle.PutTag(tagWatchpointID, id)
		if rec.Enabled {
			handle.Enable()
		}
		rec.handle = handle
		rec.Pending = false
		r.byHandle[handle] = id
	}
}

// ClearAll deletes every adapter request and empties the registry.
func (r *Watchpoints) ClearAll() {
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
	r.records = make(map[string]*WatchpointRecord)
	r.byHandle = make(map[jdi.Request]string)
	r.deferred = make(map[string][]string)
}

func (r *Watchpoints) dropDeferredLocked(className, id string) {
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

func (w *WatchpointRecord) clone() *WatchpointRecord {
	c := *w
	return &c
}

// StateName renders the user-visible watchpoint state.
func (w *WatchpointRecord) StateName() string {
	switch {
	case w.Pending:
		return "pending"
	case w.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}
