package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waitmate_events_added_total",
			Help: "Total number of events durably appended to the event log",
		},
	)

	EventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitmate_events_delivered_total",
			Help: "Total number of events delivered to a notifier, by notifier name",
		},
		[]string{"notifier"},
	)

	NotifyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitmate_notify_errors_total",
			Help: "Total number of errors returned by a notifier, by notifier name",
		},
		[]string{"notifier"},
	)

	TicklesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waitmate_tickles_sent_total",
			Help: "Total number of tickle signals successfully queued to a notifier thread",
		},
	)

	TicklesCoalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waitmate_tickles_coalesced_total",
			Help: "Total number of tickle signals dropped because one was already pending",
		},
	)

	WaitersPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitmate_waiters_pending",
			Help: "Number of waiter threads the coordinator is still selecting over",
		},
	)

	AddDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "waitmate_add_duration_seconds",
			Help: "Time to durably append one event to the log",
		},
	)
)

func init() {
	prometheus.MustRegister(EventsAdded)
	prometheus.MustRegister(EventsDelivered)
	prometheus.MustRegister(NotifyErrors)
	prometheus.MustRegister(TicklesSent)
	prometheus.MustRegister(TicklesCoalesced)
	prometheus.MustRegister(WaitersPending)
	prometheus.MustRegister(AddDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
