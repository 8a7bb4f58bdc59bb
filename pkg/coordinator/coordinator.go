/*
Package coordinator runs the selector loop that ties waiters, notifiers,
and the EventLog together: it drains whichever waiter or notifier channel is ready,
appends the event, and tickles every notifier so their tailing cursors
wake up and observe it.
*/
package coordinator

import (
	"context"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/eventlog"
	"github.com/markrileybot/waitmate/pkg/log"
	"github.com/markrileybot/waitmate/pkg/metrics"
	"github.com/markrileybot/waitmate/pkg/thread"
)

// Coordinator owns the EventLog and every thread wrapper built from the
// configured Waiters and Notifiers.
type Coordinator struct {
	log       *eventlog.EventLog
	waiters   []*thread.WaiterThread
	notifiers []*thread.NotifierThread
}

// New opens no resources of its own; it wraps waiters and notifiers
// around an already-open EventLog, building one NotifierThread per
// notifier (each opens its own tailing cursor) and one WaiterThread per
// waiter, in that order — matching the shutdown order the original
// coordinator relies on.
func New(ctx context.Context, log_ *eventlog.EventLog, waiters []bus.Waiter, notifiers []bus.Notifier) *Coordinator {
	c := &Coordinator{log: log_}

	for _, n := range notifiers {
		c.notifiers = append(c.notifiers, thread.NewNotifierThread(log_, n))
	}
	for _, w := range waiters {
		c.waiters = append(c.waiters, thread.NewWaiterThread(ctx, w))
	}

	return c
}

// Run selects over every waiter's and notifier's outbound channel plus an
// OS signal channel until all waiters have terminated or a terminal signal
// arrives. An event received from either kind of channel is appended to
// the log and every notifier is tickled.
// SIGHUP is swallowed and the loop continues; SIGINT, SIGTERM, and SIGQUIT
// break it. Run always tears down every thread wrapper before returning,
// notifiers first (so their tailing cursors stop before waiters that may
// still be producing into the log) then waiters.
func (c *Coordinator) Run() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)
	defer c.shutdown()

	active := make([]*thread.WaiterThread, len(c.waiters))
	copy(active, c.waiters)
	notifying := make([]*thread.NotifierThread, len(c.notifiers))
	copy(notifying, c.notifiers)
	metrics.WaitersPending.Set(float64(len(active)))

	for len(active) > 0 {
		cases := make([]reflect.SelectCase, 0, len(active)+len(notifying)+1)
		for _, w := range active {
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(w.Channel()),
			})
		}
		for _, n := range notifying {
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(n.Channel()),
			})
		}
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(sigCh),
		})
		sigIdx := len(cases) - 1

		chosen, recv, recvOK := reflect.Select(cases)

		if chosen == sigIdx {
			sig := recv.Interface().(os.Signal)
			if sig == syscall.SIGHUP {
				log.Logger.Info().Msg("received SIGHUP, continuing")
				continue
			}
			log.Logger.Info().Str("signal", sig.String()).Msg("received terminal signal, shutting down")
			return
		}

		if !recvOK {
			if chosen >= len(active) {
				i := chosen - len(active)
				notifying = append(notifying[:i], notifying[i+1:]...)
				continue
			}
			active = append(active[:chosen], active[chosen+1:]...)
			metrics.WaitersPending.Set(float64(len(active)))
			continue
		}

		e := recv.Interface().(event.Event)
		c.log.Add(e)
		metrics.EventsAdded.Inc()
		for _, n := range c.notifiers {
			n.Tickle()
		}
	}
}

func (c *Coordinator) shutdown() {
	for _, n := range c.notifiers {
		n.Stop()
	}
	for _, w := range c.waiters {
		w.Stop()
	}
}
