// Package ordercache keeps a live view's copy of server-held records.
//
// The cache never patches itself from change payloads. Any change matching
// the view triggers a full refetch whose result replaces the cache wholesale.
// Refetches are numbered; a result that finishes after a newer one has been
// applied is dropped, so duplicate or out-of-order notifications converge on
// the newest server state.
//
// Optimistic edits are two-phase. Tentative overlays a mutation on one entry
// and flags it Pending; Confirm folds it into the confirmed state, Rollback
// discards it. A pending edit is never reported as confirmed, and Confirm
// never writes over a row that a refetch has replaced in the meantime.
package ordercache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/metrics"
	"github.com/foodle-app/foodle/pkg/realtime"
)

var (
	ErrNotCached = errors.New("ordercache: entry not in view")
	ErrPending   = errors.New("ordercache: entry already has a pending change")
)

// Fetcher runs the view's query against the store.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Entry is one record as the view should show it.
type Entry[T any] struct {
	Value   T    `json:"value"`
	Pending bool `json:"pending"`
}

type Option[T any] func(*Cache[T])

// WithOnChange is called with every new snapshot, in order, never
// concurrently with itself.
func WithOnChange[T any](fn func([]Entry[T])) Option[T] {
	return func(c *Cache[T]) { c.onChange = fn }
}

// WithOnEvent sees each change before the refetch it triggers.
func WithOnEvent[T any](fn func(realtime.Change)) Option[T] {
	return func(c *Cache[T]) { c.onEvent = fn }
}

// WithOnError is called when a refetch triggered by Watch fails.
func WithOnError[T any](fn func(error)) Option[T] {
	return func(c *Cache[T]) { c.onError = fn }
}

// Cache is the in-memory list behind one live view.
type Cache[T any] struct {
	name     string
	fetch    Fetcher[T]
	key      func(T) string
	onChange func([]Entry[T])
	onEvent  func(realtime.Change)
	onError  func(error)

	mu       sync.Mutex
	base     []T
	overlays map[string]*Pending[T]
	loaded   bool
	issued   uint64 // last refetch generation started
	applied  uint64 // generation currently in base
	version  uint64 // bumped on every visible change

	notifyMu sync.Mutex
	notified uint64
}

// New builds a cache named name (used in logs and metrics). key must return
// a stable identifier per record.
func New[T any](name string, fetch Fetcher[T], key func(T) string, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		name:     name,
		fetch:    fetch,
		key:      key,
		overlays: make(map[string]*Pending[T]),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Refresh refetches the whole view and replaces the cache with the result,
// unless a newer refetch has already been applied.
func (c *Cache[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	gen := c.issued
	c.mu.Unlock()

	rows, err := c.fetch(ctx)
	if err != nil {
		metrics.ViewRefetches.WithLabelValues(c.name, "error").Inc()
		return fmt.Errorf("ordercache: refetch %s: %w", c.name, err)
	}

	c.mu.Lock()
	if gen <= c.applied {
		c.mu.Unlock()
		metrics.ViewRefetches.WithLabelValues(c.name, "stale").Inc()
		return nil
	}
	c.applied = gen
	c.base = append([]T(nil), rows...)
	c.loaded = true
	version, snap := c.bumpLocked()
	c.mu.Unlock()

	metrics.ViewRefetches.WithLabelValues(c.name, "ok").Inc()
	c.notify(version, snap)
	return nil
}

// Watch refreshes once, then again for every change on sub, until ctx ends
// or sub is closed. Watch owns sub and closes it on return.
func (c *Cache[T]) Watch(ctx context.Context, sub *realtime.Subscription) error {
	defer sub.Close()

	if err := c.Refresh(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ch, ok := <-sub.Events():
			if !ok {
				return nil
			}
			c.event(ch)
			// One refetch covers everything already queued.
			for drained := false; !drained; {
				select {
				case more, ok := <-sub.Events():
					if !ok {
						return nil
					}
					c.event(more)
				default:
					drained = true
				}
			}
			if err := c.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("ordercache: refetch failed", "view", c.name, "error", err)
				if c.onError != nil {
					c.onError(err)
				}
			}
		}
	}
}

func (c *Cache[T]) event(ch realtime.Change) {
	if c.onEvent != nil {
		c.onEvent(ch)
	}
}

// Loaded reports whether at least one refetch has completed.
func (c *Cache[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Snapshot returns the view as it should be displayed.
func (c *Cache[T]) Snapshot() []Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Get returns the displayed entry for key.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range c.base {
		if c.key(row) == key {
			return c.entryLocked(row), true
		}
	}
	return Entry[T]{}, false
}

// Len is the number of records in the view.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.base)
}

// Tentative overlays mutate on the entry for key until the returned Pending
// is confirmed or rolled back.
func (c *Cache[T]) Tentative(key string, mutate func(T) T) (*Pending[T], error) {
	c.mu.Lock()
	if !c.hasLocked(key) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotCached, key)
	}
	if _, busy := c.overlays[key]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPending, key)
	}
	p := &Pending[T]{cache: c, key: key, mutate: mutate, since: c.applied}
	c.overlays[key] = p
	version, snap := c.bumpLocked()
	c.mu.Unlock()

	c.notify(version, snap)
	return p, nil
}

// Pending is an unconfirmed optimistic edit.
type Pending[T any] struct {
	cache  *Cache[T]
	key    string
	mutate func(T) T
	since  uint64 // refetch generation the edit was made against
	done   bool
}

// Confirm makes the edit part of the confirmed state. If a refetch landed
// while the edit was pending, the refetched row already reflects the server
// and is kept as is. It returns false if the edit was already settled.
func (p *Pending[T]) Confirm() bool {
	return p.settle(true)
}

// Rollback discards the edit. It returns false if the edit was already
// settled.
func (p *Pending[T]) Rollback() bool {
	return p.settle(false)
}

func (p *Pending[T]) settle(keep bool) bool {
	c := p.cache
	c.mu.Lock()
	if p.done {
		c.mu.Unlock()
		return false
	}
	p.done = true
	delete(c.overlays, p.key)
	if keep && c.applied == p.since {
		for i, row := range c.base {
			if c.key(row) == p.key {
				c.base[i] = p.mutate(row)
			}
		}
	}
	version, snap := c.bumpLocked()
	c.mu.Unlock()

	c.notify(version, snap)
	return true
}

func (c *Cache[T]) hasLocked(key string) bool {
	for _, row := range c.base {
		if c.key(row) == key {
			return true
		}
	}
	return false
}

func (c *Cache[T]) entryLocked(row T) Entry[T] {
	if p, ok := c.overlays[c.key(row)]; ok {
		return Entry[T]{Value: p.mutate(row), Pending: true}
	}
	return Entry[T]{Value: row}
}

func (c *Cache[T]) snapshotLocked() []Entry[T] {
	out := make([]Entry[T], len(c.base))
	for i, row := range c.base {
		out[i] = c.entryLocked(row)
	}
	return out
}

func (c *Cache[T]) bumpLocked() (uint64, []Entry[T]) {
	c.version++
	return c.version, c.snapshotLocked()
}

func (c *Cache[T]) notify(version uint64, snap []Entry[T]) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.notified {
		return
	}
	c.notified = version
	c.onChange(snap)
}
