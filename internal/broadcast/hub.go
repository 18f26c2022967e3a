// Package broadcast fans committed auction events out to live subscribers.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"live-auction/internal/models"
	"live-auction/internal/observability"
	"live-auction/utils"
)

// ErrHubClosed is returned by Subscribe once the hub has shut down.
var ErrHubClosed = errors.New("broadcast hub closed")

const (
	// DefaultHeartbeat is the keep-alive interval of a subscription.
	DefaultHeartbeat = 30 * time.Second
	// DefaultBuffer is how many undelivered messages a subscription may hold.
	DefaultBuffer = 16
)

// Hub is a process-local fan-out of events to subscriptions. Delivery is
// best effort: a subscription that cannot take an event is pruned.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscription
	closed    bool
	nextID    atomic.Uint64
	heartbeat time.Duration
	buffer    int
}

// Option configures a Hub
type Option func(*Hub)

// WithHeartbeat sets the keep-alive interval of every subscription
func WithHeartbeat(d time.Duration) Option {
	return func(h *Hub) { h.heartbeat = d }
}

// WithBuffer sets how many undelivered messages a subscription may hold
func WithBuffer(n int) Option {
	return func(h *Hub) { h.buffer = n }
}

// NewHub returns an open Hub with default heartbeat and buffer unless overridden.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:      make(map[uint64]*Subscription),
		heartbeat: DefaultHeartbeat,
		buffer:    DefaultBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe opens a subscription. An empty auctionID receives events for all
// auctions. The subscription is closed when ctx is done, when Close is called
// on it, when delivery to it fails, or when the hub shuts down.
func (h *Hub) Subscribe(ctx context.Context, auctionID string) (*Subscription, error) {
	sub := &Subscription{
		id:        h.nextID.Add(1),
		auctionID: auctionID,
		ch:        make(chan Message, h.buffer),
		done:      make(chan struct{}),
		hub:       h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()
	observability.Subscribers.Inc()

	go sub.keepAlive(ctx, h.heartbeat)
	return sub, nil
}

// Publish delivers ev to every matching subscription without blocking.
// Subscriptions whose buffer is full are pruned.
func (h *Hub) Publish(ev models.Event) {
	observability.EventsPublished.Inc()

	var failed []*Subscription
	h.mu.RLock()
	for _, sub := range h.subs {
		if !sub.matches(ev.AuctionID) {
			continue
		}
		if !sub.offer(Message{Event: &ev}) {
			failed = append(failed, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range failed {
		observability.SubscribersPruned.Inc()
		utils.Debug("broadcast: pruning subscriber", map[string]any{
			"subscription_id": sub.id,
			"auction_id":      sub.auctionID,
		})
		sub.Close()
	}
}

// Len returns the number of open subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription and rejects new ones. It is safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *Hub) remove(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return false
	}
	delete(h.subs, id)
	return true
}
