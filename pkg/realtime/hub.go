package realtime

import (
	"context"
	"sync"

	"github.com/foodle-app/foodle/pkg/metrics"
)

// Broker publishes changes and hands out subscriptions.
type Broker interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(f Filter) *Subscription
}

// Publisher is the write half of a Broker.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// subscriptionBuffer bounds undelivered changes per subscriber. Views refetch
// on any change, so once the buffer is full further changes add nothing and
// are dropped.
const subscriptionBuffer = 16

// Hub is an in-process Broker.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers f. The caller must Close the subscription.
func (h *Hub) Subscribe(f Filter) *Subscription {
	s := &Subscription{
		filter: f,
		ch:     make(chan Change, subscriptionBuffer),
		hub:    h,
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	metrics.Subscribers.Inc()
	return s
}

// Publish delivers c to every matching subscription without blocking.
func (h *Hub) Publish(_ context.Context, c Change) error {
	metrics.ChangesPublished.WithLabelValues(c.Table, string(c.Event)).Inc()
	h.deliver(c)
	return nil
}

func (h *Hub) deliver(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.filter.Matches(c) {
			s.offer(c)
		}
	}
}

// Len is the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()
	if ok {
		metrics.Subscribers.Dec()
	}
}

// Subscription is a cancellable stream of matching changes.
type Subscription struct {
	filter Filter
	hub    *Hub

	mu     sync.Mutex
	ch     chan Change
	closed bool
}

// Events yields matching changes. It is closed by Close.
func (s *Subscription) Events() <-chan Change { return s.ch }

// Filter is the scope this subscription was opened with.
func (s *Subscription) Filter() Filter { return s.filter }

// Close unregisters the subscription. No change is delivered after Close
// returns. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Closed reports whether Close has been called.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subscription) offer(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- c:
	default:
	}
}
