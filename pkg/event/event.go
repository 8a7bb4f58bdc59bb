package event

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of an Event.
type Level int

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

func (l *Level) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	switch s {
	case "TRACE":
		*l = TRACE
	case "DEBUG":
		*l = DEBUG
	case "INFO":
		*l = INFO
	case "WARN":
		*l = WARN
	case "ERROR":
		*l = ERROR
	default:
		return fmt.Errorf("event: unknown level %q", s)
	}
	return nil
}

// lastMicros breaks ties within a single process when SystemTime resolution
// can't keep up with event production rate.
var lastMicros int64

// nextMicros returns the current time in microseconds since the Unix epoch,
// guaranteed to be strictly greater than any value it has previously returned.
func nextMicros() uint64 {
	for {
		now := uint64(time.Now().UnixMicro())
		prev := atomic.LoadInt64(&lastMicros)
		next := now
		if int64(next) <= prev {
			next = uint64(prev + 1)
		}
		if atomic.CompareAndSwapInt64(&lastMicros, prev, int64(next)) {
			return next
		}
	}
}

// Event is an immutable, uniquely-identified, time-stamped record.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Time        uint64    `json:"time"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Level       Level     `json:"level"`
	Source      string    `json:"source"`
}

// New constructs an Event, stamping it with the current time and a fresh
// random ID. Time is monotonic within one producer goroutine.
func New(source, name, description, category string, level Level) Event {
	return Event{
		ID:          uuid.New(),
		Time:        nextMicros(),
		Name:        name,
		Description: description,
		Category:    category,
		Level:       level,
		Source:      source,
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s|%s [%s] %s: %s (%s)", FormatKey(e.Time, e.ID), e.Level, e.Category, e.Name, e.Description, e.Source)
}
