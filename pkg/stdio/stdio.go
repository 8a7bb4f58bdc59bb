// Package stdio provides the simplest Waiter and Notifier adapters:
// reading lines from standard input, sleeping and emitting synthetic
// events, and printing events to standard output.
package stdio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/event"
)

var bashLine = regexp.MustCompile(`^(.*)bash(.*)$`)

// StdinWaiter publishes a WARN event for every line read from stdin that
// contains "bash". It scans until stdin is exhausted or ctx is cancelled.
type StdinWaiter struct {
	in io.Reader
}

// NewStdinWaiter reads from os.Stdin.
func NewStdinWaiter() *StdinWaiter {
	return &StdinWaiter{in: os.Stdin}
}

func (w *StdinWaiter) Name() string { return "StdinWaiter" }

func (w *StdinWaiter) Wait(ctx context.Context, b bus.EventBus) {
	scanner := bufio.NewScanner(w.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := scanner.Text()
		if bashLine.MatchString(line) {
			b.Publish(event.New(w.Name(), "A name", line, "Cat", event.WARN))
		}
	}
}

// SleepyWaiter publishes ten synthetic events a millisecond apart, for
// exercising the pipeline without any external input.
type SleepyWaiter struct{}

func NewSleepyWaiter() *SleepyWaiter { return &SleepyWaiter{} }

func (w *SleepyWaiter) Name() string { return "SleepyWaiter" }

func (w *SleepyWaiter) Wait(ctx context.Context, b bus.EventBus) {
	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b.Publish(event.New(w.Name(), "A name", fmt.Sprintf("EVENT %d", i), "Doggo", event.WARN))
		time.Sleep(time.Millisecond)
	}
}

// StdoutNotifier prints every event it receives to standard output.
type StdoutNotifier struct {
	out io.Writer
}

// NewStdoutNotifier writes to os.Stdout.
func NewStdoutNotifier() *StdoutNotifier {
	return &StdoutNotifier{out: os.Stdout}
}

func (n *StdoutNotifier) Name() string { return "StdoutNotifier" }

func (n *StdoutNotifier) Notify(e event.Event, b bus.EventBus) error {
	_, err := fmt.Fprintln(n.out, e.String())
	return err
}
