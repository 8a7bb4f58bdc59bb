package thread

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

type countingWaiter struct {
	n int
}

func (w *countingWaiter) Name() string { return "counter" }

func (w *countingWaiter) Wait(ctx context.Context, b bus.EventBus) {
	for i := 0; i < w.n; i++ {
		b.Publish(event.New("counter", "tick", "", "test", event.INFO))
	}
}

type blockingWaiter struct{}

func (w *blockingWaiter) Name() string { return "blocker" }

func (w *blockingWaiter) Wait(ctx context.Context, b bus.EventBus) {
	<-ctx.Done()
}

func TestWaiterThreadClosesChannelWhenWaitReturns(t *testing.T) {
	wt := NewWaiterThread(context.Background(), &countingWaiter{n: 3})

	count := 0
	for range wt.Channel() {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestWaiterThreadStopCancelsContext(t *testing.T) {
	wt := NewWaiterThread(context.Background(), &blockingWaiter{})
	wt.Stop()

	select {
	case _, ok := <-wt.Channel():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter thread did not close its channel after Stop")
	}
}

type recordingNotifier struct {
	seen chan event.Event
}

func (n *recordingNotifier) Name() string { return "recorder" }

func (n *recordingNotifier) Notify(e event.Event, b bus.EventBus) error {
	n.seen <- e
	return nil
}

func TestNotifierThreadDeliversAppendedEvents(t *testing.T) {
	l := eventlog.Open(filepath.Join(t.TempDir(), "event_log.rdb"), false)
	defer l.Close()

	n := &recordingNotifier{seen: make(chan event.Event, 2)}
	nt := NewNotifierThread(l, n)
	defer nt.Stop()

	e := event.New("src", "n", "d", "c", event.INFO)
	l.Add(e)
	nt.Tickle()

	select {
	case got := <-n.seen:
		assert.Equal(t, e.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier thread did not deliver the appended event")
	}
}

func TestNotifierThreadStopTerminatesGoroutine(t *testing.T) {
	l := eventlog.Open(filepath.Join(t.TempDir(), "event_log.rdb"), false)
	defer l.Close()

	n := &recordingNotifier{seen: make(chan event.Event, 1)}
	nt := NewNotifierThread(l, n)

	nt.Stop()

	_, ok := <-nt.Channel()
	require.False(t, ok)
}
