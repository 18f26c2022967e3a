package broadcast

import (
	"context"
	"sync"
	"time"

	"live-auction/internal/models"
	"live-auction/internal/observability"
)

// Message is either an event or a keep-alive signal
type Message struct {
	Event     *models.Event
	Heartbeat bool
}

// Subscription is one live viewer's push channel
type Subscription struct {
	id        uint64
	auctionID string
	hub       *Hub

	mu     sync.Mutex
	ch     chan Message
	closed bool
	done   chan struct{}
}

// Messages yields events and heartbeats; it is closed when the subscription ends.
func (s *Subscription) Messages() <-chan Message {
	return s.ch
}

// Done is closed when the subscription ends
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// AuctionID is the filter, empty for all auctions
func (s *Subscription) AuctionID() string {
	return s.auctionID
}

func (s *Subscription) matches(auctionID string) bool {
	return s.auctionID == "" || s.auctionID == auctionID
}

// offer attempts a non-blocking send and reports whether the message was queued.
func (s *Subscription) offer(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- m:
		return true
	default:
		return false
	}
}

// Close unsubscribes. Calling it again is a no-op.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	close(s.ch)
	s.mu.Unlock()

	if s.hub.remove(s.id) {
		observability.Subscribers.Dec()
	}
}

func (s *Subscription) keepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case <-ticker.C:
			// A full buffer already holds undelivered traffic; skipping the
			// heartbeat is enough.
			s.offer(Message{Heartbeat: true})
		}
	}
}
