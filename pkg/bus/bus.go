// Package bus defines the capability interfaces the coordinator consumes
// from external collaborators: Waiter, Notifier, and the EventBus they
// publish auxiliary events to.
package bus

import (
	"context"

	"github.com/markrileybot/waitmate/pkg/event"
)

// Named is anything with a stable, human-readable name used for thread
// naming, logging, and (for Notifier) durable cursor identity.
type Named interface {
	Name() string
}

// EventBus is the capability passed into waiters and notifiers so they can
// publish auxiliary events of their own.
type EventBus interface {
	Publish(e event.Event)
}

// Waiter observes an external stimulus and publishes events until it is
// exhausted or ctx is cancelled. Wait must return promptly after ctx is
// cancelled; adapters that cannot interrupt an underlying blocking read
// should at least stop looping and return once it next unblocks.
type Waiter interface {
	Named
	Wait(ctx context.Context, bus EventBus)
}

// Notifier consumes one event at a time and performs a side effect. An
// error return is adapter-defined; the core only logs it, it never
// retries or halts the notifier's cursor.
type Notifier interface {
	Named
	Notify(e event.Event, bus EventBus) error
}
