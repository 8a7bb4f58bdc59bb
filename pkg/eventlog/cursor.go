package eventlog

import (
	"encoding/json"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/log"
)

// CursorBuilder configures a Cursor before it is built. Named and
// StartingAfter are mutually exclusive; calling both leaves the
// last-set option in effect.
type CursorBuilder struct {
	log *EventLog

	name          string
	named         bool
	seekKey       []byte
	seekInclusive bool

	tailing  bool
	tickleCh <-chan bool
}

// Named configures durable resume under consumer name n: the cursor
// starts strictly after offsets[n] (or from the beginning if unset), and
// each yielded row advances offsets[n] before it is returned.
func (b *CursorBuilder) Named(n string) *CursorBuilder {
	b.name = n
	b.named = true
	b.seekKey = nil
	return b
}

// StartingAfter seeks to an explicit position. With id set, the cursor
// starts strictly after (t, id). With id unset, the cursor starts at or
// after (t, uuid.Nil) — the lowest possible id for that timestamp.
func (b *CursorBuilder) StartingAfter(t uint64, id *uuid.UUID) *CursorBuilder {
	b.named = false
	if id != nil {
		b.seekKey = []byte(event.FormatKey(t, *id))
		b.seekInclusive = false
	} else {
		b.seekKey = []byte(event.FormatKey(t, uuid.Nil))
		b.seekInclusive = true
	}
	return b
}

// Tailing enables tail mode: once the cursor catches up to the end of the
// log, Next blocks on ch instead of returning end-of-sequence. A true
// value causes a re-seek from the last-yielded key (exclusive); false or
// channel closure ends the cursor.
func (b *CursorBuilder) Tailing(ch <-chan bool) *CursorBuilder {
	b.tailing = true
	b.tickleCh = ch
	return b
}

// Build constructs the Cursor, resolving any named offset.
func (b *CursorBuilder) Build() *Cursor {
	c := &Cursor{
		log:      b.log,
		name:     b.name,
		named:    b.named,
		tailing:  b.tailing,
		tickleCh: b.tickleCh,
	}

	switch {
	case b.named:
		if pos, ok := b.log.readOffset(b.name); ok {
			c.position = pos
			c.positionInclusive = false
		}
	case b.seekKey != nil:
		c.position = b.seekKey
		c.positionInclusive = b.seekInclusive
	}

	return c
}

// Cursor is a lazy, ordered reader over an EventLog. It is not safe for
// concurrent use by multiple goroutines.
type Cursor struct {
	log  *EventLog
	name string

	named             bool
	position          []byte
	positionInclusive bool

	tailing  bool
	tickleCh <-chan bool
	done     bool
}

// Next returns the next (key, event) pair in ascending key order. The
// final bool is false once the cursor is exhausted (one-shot mode) or has
// been terminated (tail mode); it is never false together with a valid
// event.
func (c *Cursor) Next() (string, event.Event, bool) {
	for {
		if c.done {
			return "", event.Event{}, false
		}

		key, val, ok := c.scanOnce()
		if ok {
			var e event.Event
			if err := json.Unmarshal(val, &e); err != nil {
				log.Logger.Fatal().Err(err).Str("key", string(key)).Msg("failed to deserialize stored event")
			}
			if c.named {
				c.log.writeOffset(c.name, key)
			}
			c.position = key
			c.positionInclusive = false
			return string(key), e, true
		}

		if !c.tailing {
			c.done = true
			return "", event.Event{}, false
		}

		cont, ok := <-c.tickleCh
		if !ok || !cont {
			c.done = true
			return "", event.Event{}, false
		}
		// loop: re-seek from c.position, exclusive, as set above
	}
}

// scanOnce performs one seek-and-read against a fresh read transaction so
// tailing resumes always observe writes committed since the last scan.
func (c *Cursor) scanOnce() (key, val []byte, ok bool) {
	err := c.log.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(logBucket)
		cur := bucket.Cursor()

		var k, v []byte
		if c.position == nil {
			k, v = cur.First()
		} else {
			k, v = cur.Seek(c.position)
			if k != nil && !c.positionInclusive && string(k) == string(c.position) {
				k, v = cur.Next()
			}
		}

		if k == nil {
			return nil
		}
		key = append([]byte(nil), k...)
		val = append([]byte(nil), v...)
		ok = true
		return nil
	})
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("failed to scan event log")
	}
	return key, val, ok
}
