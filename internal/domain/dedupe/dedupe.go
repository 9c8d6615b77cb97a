// Package dedupe tracks idempotency keys so a replayed ballot submission is
// acknowledged without being enqueued twice.
package dedupe

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50_000

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it with
	// fingerprint if not. Returns true if key was already seen with the same
	// fingerprint, false if it was newly recorded, and ErrKeyReused if it was
	// recorded for a different fingerprint.
	SeenAndRecord(ctx context.Context, key, fingerprint string) (bool, error)

	// Unrecord forgets key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key         string
	fingerprint string
}

// inMemoryDeduper keeps keys in insertion order. When bounded, the oldest
// key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = newest
	maxSize int        // <= 0 means unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key, fingerprint string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, exists := d.seen[key]; exists {
		if el.Value.(*entry).fingerprint != fingerprint {
			return false, ErrKeyReused
		}
		return true, nil
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(&entry{key: key, fingerprint: fingerprint})
	d.size.Add(1)
	return false, nil
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, exists := d.seen[key]; exists {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*entry).key)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Key scopes an Idempotency-Key header value to the submitting voter.
func Key(voterID, idempotencyKey string) string {
	return voterID + "\x00" + idempotencyKey
}

// Fingerprint identifies the ballot an idempotency key was first used for.
func Fingerprint(weekID string, rankOrder []string) string {
	sum := sha256.Sum256([]byte(weekID + "\x00" + strings.Join(rankOrder, "\x1f")))
	return hex.EncodeToString(sum[:])
}
