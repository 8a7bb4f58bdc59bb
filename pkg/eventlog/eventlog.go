/*
Package eventlog implements the durable, append-ordered event store.

It persists Events in a bbolt database with two buckets: "log", keyed by
the zero-padded (time, id) composite described in package event, and
"offsets", keyed by consumer name and holding the last key that consumer
was handed. bbolt's bucket cursor plays the role the original RocksDB
column-family iterator plays in the source this was ported from: an
ordered, seekable cursor over a single sorted keyspace.

Fatal I/O or corruption errors terminate the process through a fatal log
entry (which exits) rather than returning an error the caller could
plausibly recover from — see the design record for
the full error-handling rationale.
*/
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/markrileybot/waitmate/pkg/event"
	"github.com/markrileybot/waitmate/pkg/log"
	"github.com/markrileybot/waitmate/pkg/metrics"
)

var (
	logBucket     = []byte("log")
	offsetsBucket = []byte("offsets")
)

// EventLog is the durable, ordered store of Events.
type EventLog struct {
	db        *bolt.DB
	path      string
	ephemeral bool
}

// Open opens the event log at path, creating it (and both buckets) if it
// does not already exist. Opening is idempotent: an existing store is
// reopened with its buckets intact.
//
// ephemeral gates the destroy-on-Close behavior: when true, Close removes
// the on-disk file entirely. The persistent store must always be opened
// with ephemeral=false. See the design record for why the original's
// unconditional destructor is not replicated here.
func Open(path string, ephemeral bool) *EventLog {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Logger.Fatal().Err(err).Str("path", path).Msg("failed to create event log directory")
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		log.Logger.Fatal().Err(err).Str("path", path).Msg("failed to open event log")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(logBucket); err != nil {
			return fmt.Errorf("create %q bucket: %w", logBucket, err)
		}
		if _, err := tx.CreateBucketIfNotExists(offsetsBucket); err != nil {
			return fmt.Errorf("create %q bucket: %w", offsetsBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		log.Logger.Fatal().Err(err).Str("path", path).Msg("failed to initialize event log buckets")
	}

	return &EventLog{db: db, path: path, ephemeral: ephemeral}
}

// Add durably appends an event, keyed by (event.Time, event.ID). It never
// modifies or deletes an existing key.
func (l *EventLog) Add(e event.Event) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AddDuration)

	key := event.KeyOf(e)
	val, err := json.Marshal(e)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("failed to serialize event")
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(logBucket).Put([]byte(key), val)
	})
	if err != nil {
		log.Logger.Fatal().Err(err).Str("key", key.String()).Msg("failed to append event")
	}
}

// Get performs a point lookup by the canonical key, returning false if no
// such event exists.
func (l *EventLog) Get(t uint64, id uuid.UUID) (event.Event, bool) {
	key := event.FormatKey(t, id)
	var e event.Event
	var found bool
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(logBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		log.Logger.Fatal().Err(err).Str("key", key.String()).Msg("failed to deserialize stored event")
	}
	return e, found
}

// BuildCursor returns a builder for a new Cursor over this log.
func (l *EventLog) BuildCursor() *CursorBuilder {
	return &CursorBuilder{log: l}
}

// Close releases the underlying database handle. If the log was opened
// ephemeral, the on-disk file is removed afterward.
func (l *EventLog) Close() error {
	if err := l.db.Close(); err != nil {
		return err
	}
	if l.ephemeral {
		return os.Remove(l.path)
	}
	return nil
}

func (l *EventLog) readOffset(name string) ([]byte, bool) {
	var pos []byte
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(offsetsBucket).Get([]byte(name))
		if v != nil {
			pos = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		log.Logger.Fatal().Err(err).Str("name", name).Msg("failed to read cursor offset")
	}
	return pos, pos != nil
}

func (l *EventLog) writeOffset(name string, key []byte) {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(offsetsBucket).Put([]byte(name), key)
	})
	if err != nil {
		log.Logger.Fatal().Err(err).Str("name", name).Msg("failed to persist cursor offset")
	}
}
