/*
Package thread wraps arbitrary Waiter and Notifier implementations in
uniform goroutine-owned wrappers: a WaiterThread spawns one goroutine
that drives a Waiter to completion; a NotifierThread spawns one goroutine
that drains a tailing, named Cursor into a Notifier. Both expose their
outbound events on a Producer channel the coordinator selects over.
*/
package thread

import (
	"context"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/eventlog"
	"github.com/markrileybot/waitmate/pkg/log"
	"github.com/markrileybot/waitmate/pkg/metrics"
)

// Producer is anything that exposes a channel of outbound events, closed
// once the underlying goroutine is done producing.
type Producer interface {
	Channel() <-chan event.Event
}

// eventChannel is the EventBus implementation handed to waiters and
// notifiers: publish sends on a channel buffered to 64 events and blocks
// while that buffer is full; the channel is closed exactly once when the
// owning goroutine finishes.
type eventChannel struct {
	out chan event.Event
}

func newEventChannel() (*eventChannel, <-chan event.Event) {
	ch := make(chan event.Event, 64)
	return &eventChannel{out: ch}, ch
}

func (c *eventChannel) Publish(e event.Event) {
	c.out <- e
}

func (c *eventChannel) close() {
	close(c.out)
}

// WaiterThread owns one goroutine running a Waiter to completion.
type WaiterThread struct {
	waiter   bus.Waiter
	receiver <-chan event.Event
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWaiterThread spawns a goroutine that runs waiter.Wait until it
// returns on its own or ctx is cancelled.
func NewWaiterThread(ctx context.Context, waiter bus.Waiter) *WaiterThread {
	ctx, cancel := context.WithCancel(ctx)
	ch, receiver := newEventChannel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ch.close()
		l := log.WithWaiter(waiter.Name())
		l.Info().Msg("waiter starting")
		waiter.Wait(ctx, ch)
		l.Info().Msg("waiter finished")
	}()

	return &WaiterThread{waiter: waiter, receiver: receiver, cancel: cancel, done: done}
}

func (w *WaiterThread) Channel() <-chan event.Event {
	return w.receiver
}

// Stop cancels the waiter's context. It does not wait for the goroutine
// to exit — a Waiter blocked in an uninterruptible read has no way to be
// forced out, matching the documented limitation this wrapper inherits.
func (w *WaiterThread) Stop() {
	w.cancel()
}

// NotifierThread owns one goroutine draining a tailing, named Cursor
// into a Notifier.
type NotifierThread struct {
	notifier bus.Notifier
	receiver <-chan event.Event
	tickler  chan bool
	done     chan struct{}
}

// NewNotifierThread opens a cursor named after the notifier, tailing it,
// and spawns a goroutine that invokes notifier.Notify for each row.
func NewNotifierThread(log_ *eventlog.EventLog, notifier bus.Notifier) *NotifierThread {
	tickler := make(chan bool, 1)
	ch, receiver := newEventChannel()
	done := make(chan struct{})

	cursor := log_.BuildCursor().
		Named(notifier.Name()).
		Tailing(tickler).
		Build()

	go func() {
		defer close(done)
		defer ch.close()
		l := log.WithNotifier(notifier.Name())
		for {
			_, e, ok := cursor.Next()
			if !ok {
				return
			}
			if err := notifier.Notify(e, ch); err != nil {
				metrics.NotifyErrors.WithLabelValues(notifier.Name()).Inc()
				l.Error().Err(err).Str("event", e.String()).Msg("notifier failed")
			} else {
				metrics.EventsDelivered.WithLabelValues(notifier.Name()).Inc()
			}
		}
	}()

	return &NotifierThread{notifier: notifier, receiver: receiver, tickler: tickler, done: done}
}

func (n *NotifierThread) Channel() <-chan event.Event {
	return n.receiver
}

// Tickle is a non-blocking, best-effort signal that new rows may exist.
// Because the tickle channel has capacity 1, redundant tickles while one
// is already pending are silently dropped — at least one more scan is
// still guaranteed after the most recent Add.
func (n *NotifierThread) Tickle() {
	select {
	case n.tickler <- true:
		metrics.TicklesSent.Inc()
	default:
		metrics.TicklesCoalesced.Inc()
	}
}

// Stop terminates the tailing cursor cleanly and waits for the notifier
// goroutine to exit.
func (n *NotifierThread) Stop() {
	n.tickler <- false
	<-n.done
}
