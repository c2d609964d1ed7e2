// Package outbox is the durable delivery queue between the matching
// core and the message bus. Every emitted trade is staged here before
// the broadcaster ships it, so a crash between match and publish loses
// nothing.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Entry is one staged delivery.
type Entry struct {
	Key         string
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeEntry(e *Entry) []byte {
	buf := make([]byte, 13+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[13:], e.Payload)
	return buf
}

func decodeEntry(key string, b []byte) (*Entry, error) {
	if len(b) < 13 {
		return nil, errors.New("outbox: entry too short")
	}
	return &Entry{
		Key:         key,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[13:]...),
	}, nil
}

const keyPrefix = "trade/"

func keyFor(key string) []byte {
	return []byte(keyPrefix + key)
}

// Outbox is a pebble-backed staging store.
type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // deliveries must survive a crash
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: open: %w", err)
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// PutNew stages a payload for delivery.
func (o *Outbox) PutNew(key string, payload []byte) error {
	e := &Entry{State: StateNew, Payload: payload}
	return o.db.Set(keyFor(key), encodeEntry(e), pebble.Sync)
}

// MarkSent flags an entry as handed to the bus but not yet confirmed.
func (o *Outbox) MarkSent(key string) error {
	return o.transition(key, StateSent, 0)
}

// MarkAcked flags an entry as confirmed by the bus.
func (o *Outbox) MarkAcked(key string) error {
	return o.transition(key, StateAcked, 0)
}

// MarkFailed flags a failed attempt and bumps the retry count.
func (o *Outbox) MarkFailed(key string) error {
	return o.transition(key, StateFailed, 1)
}

// Delete removes an entry, normally after MarkAcked.
func (o *Outbox) Delete(key string) error {
	return o.db.Delete(keyFor(key), pebble.Sync)
}

// Get returns the entry for a key.
func (o *Outbox) Get(key string) (*Entry, error) {
	val, closer, err := o.db.Get(keyFor(key))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeEntry(key, val)
}

func (o *Outbox) transition(key string, state State, bumpRetries uint32) error {
	e, err := o.Get(key)
	if err != nil {
		return err
	}
	e.State = state
	e.Retries += bumpRetries
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(key), encodeEntry(e), pebble.Sync)
}

// ScanPending visits every entry still owed to the bus: NEW, FAILED,
// and SENT entries whose last attempt is older than retryAfter (a
// crash can strand an entry in SENT). Returning an error stops the
// scan.
func (o *Outbox) ScanPending(retryAfter time.Duration, fn func(*Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	cutoff := time.Now().Add(-retryAfter).UnixNano()
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key()[len(keyPrefix):])
		e, err := decodeEntry(key, iter.Value())
		if err != nil {
			return err
		}
		switch e.State {
		case StateNew, StateFailed:
		case StateSent:
			if e.LastAttempt > cutoff {
				continue
			}
		default:
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}
