// Package metrics exposes waitmate's Prometheus registry: counters for
// events added and delivered, tickle coalescing, a waiters-pending gauge,
// and the Timer helper used to time durable writes.
package metrics
