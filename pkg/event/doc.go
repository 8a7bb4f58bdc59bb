// Package event defines the immutable Event record and its canonical,
// lexicographically sortable log key.
package event
