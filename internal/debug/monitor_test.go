package debug

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdimcp/jdi-mcp/internal/errors"
	"github.com/jdimcp/jdi-mcp/internal/jdi"
)

func TestEventMonitors_SubscriptionPrefixes(t *testing.T) {
	target := newFakeTarget()
	mon := NewEventMonitors(testLog())

	cp, err := mon.WatchClassPrepare(target, "com.example.*")
	require.NoError(t, err)
	cu, err := mon.WatchClassUnload(target, "")
	require.NoError(t, err)
	ts, err := mon.WatchThreadStart(target)
	require.NoError(t, err)
	td, err := mon.WatchThreadDeath(target)
	require.NoError(t, err)
	mc, err := mon.WatchMonitorContention(target)
	require.NoError(t, err)

	assert.Equal(t, "cp-1", cp)
	assert.Equal(t, "cu-2", cu)
	assert.Equal(t, "ts-3", ts)
	assert.Equal(t, "td-4", td)
	assert.Equal(t, "mc-5", mc)

	watches := mon.ActiveWatches()
	assert.Len(t, watches, 5)
	assert.Equal(t, "class_prepare [enabled]", watches["cp-1"])
	assert.Equal(t, "monitor_contend [enabled]", watches["mc-5"])

	// Monitoring requests never stop the target.
	for _, req := range target.requests {
		assert.Equal(t, jdi.SuspendNone, req.policy)
	}
}

func TestEventMonitors_MonitorCapabilityRequired(t *testing.T) {
	target := newFakeTarget()
	target.noMonitorEvents = true
	mon := NewEventMonitors(testLog())

	_, err := mon.WatchMonitorContention(target)
	require.Error(t, err)
	assert.Equal(t, errors.CodeCapabilityMissing, errors.FromError(err).Code)
}

func TestEventMonitors_CaptureAndDrain(t *testing.T) {
	mon := NewEventMonitors(testLog())
	thread := &fakeThread{id: 7, name: "worker-7"}

	mon.Capture(&fakeThreadStartEvent{thread: thread})
	mon.Capture(&fakeThreadDeathEvent{thread: thread})
	mon.Capture(&fakeClassUnloadEvent{className: "com.example.Gone"})

	assert.Equal(t, 3, mon.PendingCount())

	// Peek leaves the queue intact.
	peeked := mon.Peek()
	require.Len(t, peeked, 3)
	assert.Equal(t, 3, mon.PendingCount())

	drained := mon.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, EventThreadStart, drained[0].Kind)
	assert.Equal(t, EventThreadDeath, drained[1].Kind)
	assert.Equal(t, EventClassUnload, drained[2].Kind)
	assert.Equal(t, "com.example.Gone", detailOf(drained[2], "className"))
	assert.Equal(t, 0, mon.PendingCount())
}

func detailOf(e CapturedEvent, key string) string {
	for _, d := range e.Details {
		if d.Key == key {
			return d.Value
		}
	}
	return ""
}

func TestEventMonitors_RingDropsOldest(t *testing.T) {
	mon := NewEventMonitors(testLog())

	for i := 0; i < 130; i++ {
		mon.Capture(&fakeThreadStartEvent{thread: &fakeThread{id: int64(i), name: fmt.Sprintf("t-%d", i)}})
	}

	assert.Equal(t, maxCapturedEvents, mon.PendingCount())
	drained := mon.Drain()
	require.Len(t, drained, maxCapturedEvents)
	// The first 30 were dropped; the oldest retained is t-30.
	assert.Equal(t, "t-30", detailOf(drained[0], "threadName"))
	assert.Equal(t, "t-129", detailOf(drained[len(drained)-1], "threadName"))
}

func TestEventMonitors_NonLifecycleEventsIgnored(t *testing.T) {
	mon := NewEventMonitors(testLog())
	cls := newFakeType("com.example.C", 10)
	loc := &fakeLocation{typ: cls, method: &fakeMethod{owner: cls, name: "run", sig: "()V"}, line: 10}

	mon.Capture(&fakeBreakpointEvent{thread: &fakeThread{id: 1, name: "main"}, loc: loc})
	assert.Equal(t, 0, mon.PendingCount())
}

func TestEventMonitors_RemoveWatch(t *testing.T) {
	target := newFakeTarget()
	mon := NewEventMonitors(testLog())

	id, err := mon.WatchThreadStart(target)
	require.NoError(t, err)
	require.NoError(t, mon.RemoveWatch(id))
	assert.Equal(t, 0, target.liveRequests("thread-start"))

	err = mon.RemoveWatch(id)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.FromError(err).Code)
}

func TestEventMonitors_Reset(t *testing.T) {
	target := newFakeTarget()
	mon := NewEventMonitors(testLog())

	_, err := mon.WatchThreadStart(target)
	require.NoError(t, err)
	mon.Capture(&fakeThreadStartEvent{thread: &fakeThread{id: 1, name: "t"}})

	mon.Reset()
	assert.Empty(t, mon.ActiveWatches())
	assert.Equal(t, 0, mon.PendingCount())
	assert.Equal(t, 0, target.liveRequests("thread-start"))

	// Counters restart after reset.
	id, err := mon.WatchThreadStart(target)
	require.NoError(t, err)
	assert.Equal(t, "ts-1", id)
}
