package debug

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

// Captured event kinds.
const (
	EventClassPrepare   = "class_prepare"
	EventClassUnload    = "class_unload"
	EventThreadStart    = "thread_start"
	EventThreadDeath    = "thread_death"
	EventMonitorContend = "monitor_contend"
	EventMonitorWait    = "monitor_wait"
)

// maxCapturedEvents bounds the captured-event ring; overflow drops the
// oldest entries.
const maxCapturedEvents = 100

// CapturedEvent is one recorded lifecycle event.
type CapturedEvent struct {
	Kind      string
	Timestamp time.Time
	Details   []Detail
}

// EventMonitors manages lifecycle-event subscriptions and the bounded ring
// of captured events. Subscriptions never stop the target: every request
// is created with suspend policy NONE.
//
// Subscription id prefixes: cp- (class prepare), cu- (class unload),
// ts- (thread start), td- (thread death), mc- (monitor contention).
type EventMonitors struct {
	mu       sync.Mutex
	requests map[string]jdi.Request
	captured []CapturedEvent
	counter  int64

	log *logrus.Entry
}

// NewEventMonitors creates an empty store.
func NewEventMonitors(log *logrus.Entry) *EventMonitors {
	return &EventMonitors{
		requests: make(map[string]jdi.Request),
		log:      log.WithField("registry", "events"),
	}
}

// WatchClassPrepare subscribes to class prepare events, optionally
// filtered by a class name pattern ("" or "*" for all).
func (m *EventMonitors) WatchClassPrepare(t jdi.Target, classFilter string) (string, error) {
	req, err := t.CreateClassPrepareWatch(normalizeFilter(classFilter))
	if err != nil {
		return "", errors.Internal(err)
	}
	return m.register("cp-", req), nil
}

// WatchClassUnload subscribes to class unload events.
func (m *EventMonitors) WatchClassUnload(t jdi.Target, classFilter string) (string, error) {
	req, err := t.CreateClassUnloadWatch(normalizeFilter(classFilter))
	if err != nil {
		return "", errors.Internal(err)
	}
	return m.register("cu-", req), nil
}

// WatchThreadStart subscribes to thread start events.
func (m *EventMonitors) WatchThreadStart(t jdi.Target) (string, error) {
	req, err := t.CreateThreadStartWatch()
	if err != nil {
		return "", errors.Internal(err)
	}
	return m.register("ts-", req), nil
}

// WatchThreadDeath subscribes to thread death events.
func (m *EventMonitors) WatchThreadDeath(t jdi.Target) (string, error) {
	req, err := t.CreateThreadDeathWatch()
	if err != nil {
		return "", errors.Internal(err)
	}
	return m.register("td-", req), nil
}

// WatchMonitorContention subscribes to monitor contended-enter events.
// Fails when the target VM does not support monitor events.
func (m *EventMonitors) WatchMonitorContention(t jdi.Target) (string, error) {
	if !t.CanRequestMonitorEvents() {
		return "", errors.CapabilityMissing("monitor events")
	}
	req, err := t.CreateMonitorContendWatch()
	if err != nil {
		return "", errors.Internal(err)
	}
	return m.register("mc-", req), nil
}

func normalizeFilter(filter string) string {
	if filter == "*" {
		return ""
	}
	return filter
}

func (m *EventMonitors) register(prefix string, req jdi.Request) string {
	req.SetSuspendPolicy(jdi.SuspendNone)
	req.Enable()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	id := fmt.Sprintf("%s%d", prefix, m.counter)
	m.requests[id] = req
	m.log.WithField("id", id).Debug("event watch registered")
	return id
}

// RemoveWatch deletes a subscription by id.
func (m *EventMonitors) RemoveWatch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return errors.IDNotFound("event watch", id)
	}
	delete(m.requests, id)
	req.Delete()
	return nil
}

// ActiveWatches returns id -> "kind [enabled|disabled]" for every
// subscription.
func (m *EventMonitors) ActiveWatches() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.requests))
	for id, req := range m.requests {
		state := "enabled"
		if !req.IsEnabled() {
			state = "disabled"
		}
		out[id] = fmt.Sprintf("%s [%s]", kindFromID(id), state)
	}
	return out
}

func kindFromID(id string) string {
	switch {
	case len(id) > 3 && id[:3] == "cp-":
		return EventClassPrepare
	case len(id) > 3 && id[:3] == "cu-":
		return EventClassUnload
	case len(id) > 3 && id[:3] == "ts-":
		return EventThreadStart
	case len(id) > 3 && id[:3] == "td-":
		return EventThreadDeath
	case len(id) > 3 && id[:3] == "mc-":
		return EventMonitorContend
	}
	return "unknown"
}

// Capture classifies and records a lifecycle event. Non-lifecycle events
// are ignored. Called only from the event pump.
func (m *EventMonitors) Capture(ev jdi.Event) {
	captured, ok := capturedFrom(ev)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = append(m.captured, captured)
	if over := len(m.captured) - maxCapturedEvents; over > 0 {
		m.captured = append([]CapturedEvent(nil), m.captured[over:]...)
	}
}

func capturedFrom(ev jdi.Event) (CapturedEvent, bool) {
	c := CapturedEvent{Timestamp: time.Now()}
	switch e := ev.(type) {
	case jdi.ClassPrepareEvent:
		c.Kind = EventClassPrepare
		c.Details = append(c.Details, Detail{"className", e.ReferenceType().Name()})
		if th := e.Thread(); th != nil {
			c.Details = append(c.Details, Detail{"threadName", th.Name()})
		}
	case jdi.ClassUnloadEvent:
		c.Kind = EventClassUnload
		c.Details = append(c.Details, Detail{"className", e.ClassName()})
	case jdi.ThreadStartEvent:
		c.Kind = EventThreadStart
		c.Details = append(c.Details,
			Detail{"threadId", strconv.FormatInt(e.Thread().UniqueID(), 10)},
			Detail{"threadName", e.Thread().Name()})
	case jdi.ThreadDeathEvent:
		c.Kind = EventThreadDeath
		c.Details = append(c.Details,
			Detail{"threadId", strconv.FormatInt(e.Thread().UniqueID(), 10)},
			Detail{"threadName", e.Thread().Name()})
	case jdi.MonitorContendEvent:
		c.Kind = EventMonitorContend
		c.Details = append(c.Details,
			Detail{"threadId", strconv.FormatInt(e.Thread().UniqueID(), 10)},
			Detail{"threadName", e.Thread().Name()})
		if mon := e.Monitor(); mon != nil {
			c.Details = append(c.Details,
				Detail{"monitorClass", mon.TypeName()},
				Detail{"monitorId", strconv.FormatInt(mon.UniqueID(), 10)})
		}
	case jdi.MonitorWaitEvent:
		c.Kind = EventMonitorWait
		c.Details = append(c.Details,
			Detail{"threadId", strconv.FormatInt(e.Thread().UniqueID(), 10)},
			Detail{"threadName", e.Thread().Name()})
		if mon := e.Monitor(); mon != nil {
			c.Details = append(c.Details, Detail{"monitorClass", mon.TypeName()})
		}
		c.Details = append(c.Details, Detail{"timeout", strconv.FormatInt(e.TimeoutMs(), 10)})
	default:
		return CapturedEvent{}, false
	}
	return c, true
}

// Drain returns and removes every pending captured event, oldest first.
func (m *EventMonitors) Drain() []CapturedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.captured
	m.captured = nil
	return out
}

// Peek returns a snapshot of pending captured events without removing them.
func (m *EventMonitors) Peek() []CapturedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CapturedEvent, len(m.captured))
	copy(out, m.captured)
	return out
}

// PendingCount reports the number of captured events waiting to be drained.
func (m *EventMonitors) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captured)
}

// Reset drops all subscriptions and captured events. Called by the
// session on disconnect; adapter deletions are best-effort.
func (m *EventMonitors) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		req.Delete()
	}
	m.requests = make(map[string]jdi.Request)
	m.captured = nil
	m.counter = 0
}

func (c CapturedEvent) String() string {
	s := "[" + c.Kind + "]"
	for i, d := range c.Details {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += d.Key + "=" + d.Value
	}
	return s
}
