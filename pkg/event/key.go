package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// timeWidth is wide enough for a 64-bit microsecond timestamp (up to ~584,942
// years since the epoch) so that decimal comparison matches numeric
// comparison regardless of magnitude. The original Rust implementation left
// this unpadded, which only sorted correctly while every key shared the same
// decimal width; see the ordering note in the design record.
const timeWidth = 20

// Key is the canonical sortable serialization of (time, id): a zero-padded
// decimal timestamp, a '|' separator, then the canonical UUID text form.
// Byte-lexicographic order on Key equals chronological order, with id as
// the tiebreaker for equal timestamps.
type Key string

// FormatKey builds the canonical key for a given time and id.
func FormatKey(t uint64, id uuid.UUID) Key {
	return Key(fmt.Sprintf("%0*d|%s", timeWidth, t, id.String()))
}

// String returns the key's textual form.
func (k Key) String() string {
	return string(k)
}

// ParseKey parses the inverse of FormatKey, rejecting malformed input
// instead of guessing at intent (the original leaves this unvalidated).
func ParseKey(s string) (uint64, uuid.UUID, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return 0, uuid.Nil, fmt.Errorf("event: malformed key %q: expected <time>|<uuid>", s)
	}
	if len(parts[0]) != timeWidth {
		return 0, uuid.Nil, fmt.Errorf("event: malformed key %q: time component must be %d digits", s, timeWidth)
	}
	t, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("event: malformed key %q: %w", s, err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("event: malformed key %q: %w", s, err)
	}
	return t, id, nil
}

// KeyOf returns the canonical key for an event.
func KeyOf(e Event) Key {
	return FormatKey(e.Time, e.ID)
}
