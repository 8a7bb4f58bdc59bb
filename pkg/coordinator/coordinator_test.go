package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/eventlog"
)

// countingWaiter publishes n events and returns.
type countingWaiter struct {
	name string
	n    int
}

func (w *countingWaiter) Name() string { return w.name }

func (w *countingWaiter) Wait(ctx context.Context, b bus.EventBus) {
	for i := 0; i < w.n; i++ {
		b.Publish(event.New(w.name, "tick", "", "test", event.INFO))
	}
}

// recordingNotifier forwards every event it sees onto a channel.
type recordingNotifier struct {
	name string
	seen chan event.Event
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Notify(e event.Event, b bus.EventBus) error {
	n.seen <- e
	return nil
}

func TestCoordinatorDeliversAllEventsToNotifier(t *testing.T) {
	dir := t.TempDir()
	l := eventlog.Open(filepath.Join(dir, "event_log.rdb"), false)
	defer l.Close()

	w := &countingWaiter{name: "counter", n: 5}
	n := &recordingNotifier{name: "recorder", seen: make(chan event.Event, 5)}

	c := New(context.Background(), l, []bus.Waiter{w}, []bus.Notifier{n})

	runDone := make(chan struct{})
	go func() {
		c.Run()
		close(runDone)
	}()

	for i := 0; i < 5; i++ {
		select {
		case e := <-n.seen:
			assert.Equal(t, "counter", e.Source)
		case <-time.After(2 * time.Second):
			t.Fatal("notifier did not receive all events in time")
		}
	}

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not exit after waiter finished")
	}

	// every published event is durably persisted regardless of notifier delivery
	cur := l.BuildCursor().Build()
	count := 0
	for {
		_, _, ok := cur.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 5, count)
}

func TestCoordinatorStopsOnWaiterCompletion(t *testing.T) {
	dir := t.TempDir()
	l := eventlog.Open(filepath.Join(dir, "event_log.rdb"), false)
	defer l.Close()

	w := &countingWaiter{name: "w", n: 1}
	c := New(context.Background(), l, []bus.Waiter{w}, nil)

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator never returned once its only waiter finished")
	}

	cur := l.BuildCursor().Build()
	_, e, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, "w", e.Source)
}
