package auth

import (
	"context"
	"sync"
	"time"

	"github.com/foodle-app/foodle/pkg/cache"
)

// DenyList holds signed-out token ids until the tokens would have expired.
// It uses Redis when connected and process memory otherwise.
type DenyList struct {
	mu  sync.Mutex
	mem map[string]time.Time
	now func() time.Time
}

func NewDenyList() *DenyList {
	return &DenyList{mem: make(map[string]time.Time), now: time.Now}
}

func denyKey(jti string) string { return "foodle:revoked:" + jti }

// Revoke denies the token for the rest of its lifetime.
func (d *DenyList) Revoke(ctx context.Context, c *Claims) error {
	ttl := c.Remaining()
	if c.ID == "" || ttl <= 0 {
		return nil
	}
	if cache.Available() {
		return cache.Set(ctx, denyKey(c.ID), true, ttl)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.mem[c.ID] = d.now().Add(ttl)
	return nil
}

// Prune forgets in-memory entries whose tokens have expired anyway.
func (d *DenyList) Prune(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, until := range d.mem {
		if !now.Before(until) {
			delete(d.mem, id)
		}
	}
	return nil
}

// Revoked reports whether jti was signed out.
func (d *DenyList) Revoked(ctx context.Context, jti string) bool {
	if cache.Available() {
		return cache.Has(ctx, denyKey(jti))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.mem[jti]
	return ok && d.now().Before(until)
}
