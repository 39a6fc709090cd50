package ordercache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/ordercache"
	"github.com/foodle-app/foodle/pkg/realtime"
)

type row struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func rowKey(r row) string { return r.ID }

// store is a fake server: a mutable list plus a fetch counter.
type store struct {
	mu      sync.Mutex
	rows    []row
	fetches int
	fail    error
}

func (s *store) fetch(context.Context) ([]row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fail != nil {
		return nil, s.fail
	}
	return append([]row(nil), s.rows...), nil
}

func (s *store) set(rows ...row) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

func (s *store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func values(entries []ordercache.Entry[row]) []row {
	out := make([]row, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

func TestRefresh_ReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := &store{}
	s.set(row{"o1", "received"}, row{"o2", "received"})
	c := ordercache.New("test", s.fetch, rowKey)

	require.NoError(t, c.Refresh(ctx))
	assert.Len(t, c.Snapshot(), 2)

	s.set(row{"o2", "preparing"})
	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, []row{{"o2", "preparing"}}, values(c.Snapshot()))
}

func TestRefresh_DuplicateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := &store{}
	s.set(row{"o1", "ready"})
	c := ordercache.New("test", s.fetch, rowKey)

	require.NoError(t, c.Refresh(ctx))
	once := c.Snapshot()
	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, once, c.Snapshot())
}

func TestRefresh_ErrorKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	s := &store{}
	s.set(row{"o1", "received"})
	c := ordercache.New("test", s.fetch, rowKey)
	require.NoError(t, c.Refresh(ctx))

	s.fail = errors.New("connection reset")
	assert.Error(t, c.Refresh(ctx))
	assert.Equal(t, []row{{"o1", "received"}}, values(c.Snapshot()))
}

func TestRefresh_StaleResultDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	fetch := func(context.Context) ([]row, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-release
			return []row{{"o1", "received"}}, nil
		}
		return []row{{"o1", "preparing"}}, nil
	}
	c := ordercache.New("test", fetch, rowKey)

	slow := make(chan error)
	go func() { slow <- c.Refresh(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Refresh(ctx))
	close(release)
	require.NoError(t, <-slow)

	assert.Equal(t, []row{{"o1", "preparing"}}, values(c.Snapshot()))
}

func TestTentative_ConfirmAndRollback(t *testing.T) {
	ctx := context.Background()
	s := &store{}
	s.set(row{"o1", "received"}, row{"o2", "received"})
	c := ordercache.New("test", s.fetch, rowKey)
	require.NoError(t, c.Refresh(ctx))

	accept := func(r row) row { r.Status = "preparing"; return r }

	p1, err := c.Tentative("o1", accept)
	require.NoError(t, err)
	e, _ := c.Get("o1")
	assert.Equal(t, "preparing", e.Value.Status)
	assert.True(t, e.Pending)

	_, err = c.Tentative("o1", accept)
	assert.ErrorIs(t, err, ordercache.ErrPending)

	assert.True(t, p1.Confirm())
	assert.False(t, p1.Rollback())
	e, _ = c.Get("o1")
	assert.Equal(t, row{"o1", "preparing"}, e.Value)
	assert.False(t, e.Pending)

	p2, err := c.Tentative("o2", accept)
	require.NoError(t, err)
	assert.True(t, p2.Rollback())
	e, _ = c.Get("o2")
	assert.Equal(t, row{"o2", "received"}, e.Value)
	assert.False(t, e.Pending)

	_, err = c.Tentative("nope", accept)
	assert.ErrorIs(t, err, ordercache.ErrNotCached)
}

func TestTentative_SurvivesRefetchUntilSettled(t *testing.T) {
	ctx := context.Background()
	s := &store{}
	s.set(row{"o1", "received"})
	c := ordercache.New("test", s.fetch, rowKey)
	require.NoError(t, c.Refresh(ctx))

	p, err := c.Tentative("o1", func(r row) row { r.Status = "preparing"; return r })
	require.NoError(t, err)

	require.NoError(t, c.Refresh(ctx))
	e, _ := c.Get("o1")
	assert.True(t, e.Pending)
	assert.Equal(t, "preparing", e.Value.Status)

	p.Rollback()
	e, _ = c.Get("o1")
	assert.Equal(t, "received", e.Value.Status)
}

func TestTentative_ConfirmKeepsNewerRefetch(t *testing.T) {
	ctx := context.Background()
	s := &store{}
	s.set(row{"o1", "received"})
	c := ordercache.New("test", s.fetch, rowKey)
	require.NoError(t, c.Refresh(ctx))

	p, err := c.Tentative("o1", func(r row) row { r.Status = "preparing"; return r })
	require.NoError(t, err)

	// the server moved on before the edit was acknowledged
	s.set(row{"o1", "ready"})
	require.NoError(t, c.Refresh(ctx))

	assert.True(t, p.Confirm())
	e, ok := c.Get("o1")
	require.True(t, ok)
	assert.Equal(t, row{"o1", "ready"}, e.Value)
	assert.False(t, e.Pending)
}

func TestWatch_RefetchesOnChangeAndReleasesSubscription(t *testing.T) {
	hub := realtime.NewHub()
	s := &store{}
	s.set(row{"o1", "received"})

	var mu sync.Mutex
	var snaps [][]ordercache.Entry[row]
	c := ordercache.New("test", s.fetch, rowKey,
		ordercache.WithOnChange(func(e []ordercache.Entry[row]) {
			mu.Lock()
			snaps = append(snaps, e)
			mu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(realtime.Filter{Table: "orders", Column: "id", Value: "o1"})
	done := make(chan error)
	go func() { done <- c.Watch(ctx, sub) }()

	require.Eventually(t, c.Loaded, time.Second, time.Millisecond)

	s.set(row{"o1", "ready"})
	ch, err := realtime.NewChange("orders", realtime.Update, row{"o1", "ready"}, row{"o1", "preparing"})
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, ch))
	require.NoError(t, hub.Publish(ctx, ch))

	require.Eventually(t, func() bool {
		e, _ := c.Get("o1")
		return e.Value.Status == "ready"
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, sub.Closed())
	assert.Equal(t, 0, hub.Len())

	before := s.count()
	_ = hub.Publish(context.Background(), ch)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, before, s.count())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	assert.Equal(t, "ready", snaps[len(snaps)-1][0].Value.Status)
}
