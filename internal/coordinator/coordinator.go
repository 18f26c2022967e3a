// Package coordinator commits bids. For each auction it runs
// validate, append and price update as one serialized, atomic step and
// publishes the resulting event.
package coordinator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/bidrules"
	"live-auction/internal/ledger"
	"live-auction/internal/models"
	"live-auction/internal/observability"
	"live-auction/internal/repository"
	"live-auction/utils"
)

// DefaultCommitTimeout bounds how long a bid waits for its auction's commit slot.
const DefaultCommitTimeout = 5 * time.Second

// Publisher receives one event per committed bid
type Publisher interface {
	Publish(ev models.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.Event) {}

// Coordinator defines the bid commit path
type Coordinator struct {
	repo          repository.AuctionDB
	ledger        *ledger.Ledger
	publisher     Publisher
	slots         *keyedMutex
	commitTimeout time.Duration
	now           func() time.Time
	tracer        trace.Tracer
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithPublisher sets where committed bids are announced
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithCommitTimeout bounds how long a submission may wait for its slot and storage
func WithCommitTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.commitTimeout = d }
}

// WithClock replaces time.Now for the ended check
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator over repo and its ledger
func New(repo repository.AuctionDB, l *ledger.Ledger, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:          repo,
		ledger:        l,
		publisher:     nopPublisher{},
		slots:         newKeyedMutex(),
		commitTimeout: DefaultCommitTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		tracer:        otel.Tracer(observability.TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitBid validates and commits a bid. Rejections (ended, self bid, too
// low, not found) are returned as-is and leave no trace. Any storage fault
// or timeout is reported as ErrCommitFailed and leaves state unchanged, so
// the caller may resubmit.
func (c *Coordinator) SubmitBid(ctx context.Context, auctionID string, bidder models.Bidder, amount float64) (models.Bid, error) {
	if err := checkInput(auctionID, bidder, amount); err != nil {
		return models.Bid{}, err
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.SubmitBid", trace.WithAttributes(
		attribute.String("auction.id", auctionID),
		attribute.Float64("bid.amount", amount),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.commitTimeout)
	defer cancel()

	start := time.Now()
	unlock, err := c.slots.Lock(ctx, auctionID)
	if err != nil {
		return models.Bid{}, c.commitFailed(span, auctionID, err)
	}
	defer unlock()

	var (
		bid     models.Bid
		updated models.Auction
	)
	err = c.repo.RunInTx(ctx, auctionID, func(ctx context.Context, tx repository.BidTx) error {
		a, err := tx.Auction(ctx)
		if err != nil {
			return err
		}

		state := bidrules.State{CurrentPrice: a.CurrentPrice, EndsAt: a.EndsAt, OwnerID: a.OwnerID}
		decision, err := bidrules.Evaluate(state, bidrules.Proposal{BidderID: bidder.UserID, Amount: amount}, c.now())
		if err != nil {
			return err
		}

		bid, err = c.ledger.Append(ctx, tx, auctionID, bidder, amount)
		if err != nil {
			return err
		}
		if err := tx.UpdateCurrentPrice(ctx, decision.NextPrice); err != nil {
			return err
		}

		a.CurrentPrice = decision.NextPrice
		a.BidCount++
		updated = a
		return nil
	})
	if err != nil {
		if auctionerrors.IsRejection(err) {
			c.rejected(span, auctionID, bidder, amount, err)
			return models.Bid{}, err
		}
		return models.Bid{}, c.commitFailed(span, auctionID, err)
	}

	observability.CommitDuration.Observe(time.Since(start).Seconds())
	observability.BidsAccepted.Inc()

	// Still inside the slot, so events for one auction leave in commit order.
	c.publisher.Publish(models.Event{
		Type:      models.EventBidPlaced,
		AuctionID: auctionID,
		Bid:       bid,
		Auction:   updated.Summary(),
	})

	utils.Info("bid accepted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     bid.BidID,
		"user_id":    bidder.UserID,
		"amount":     amount,
	})
	return bid, nil
}

// MinBid returns the smallest amount that would currently be accepted for
// the auction. It is a preview; the commit re-evaluates against fresh state.
func (c *Coordinator) MinBid(ctx context.Context, auctionID string) (float64, error) {
	a, err := c.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return 0, fmt.Errorf("coordinator: min bid for %s: %w", auctionID, err)
	}
	return bidrules.MinBid(a.CurrentPrice), nil
}

func checkInput(auctionID string, bidder models.Bidder, amount float64) error {
	switch {
	case bidder.UserID == "":
		return fmt.Errorf("coordinator: %w - missing bidder", auctionerrors.ErrUnauthenticated)
	case auctionID == "":
		return fmt.Errorf("coordinator: %w - empty auction id", auctionerrors.ErrNotFound)
	case math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0:
		return fmt.Errorf("coordinator: %w - amount must be a positive number", auctionerrors.ErrInvalidBid)
	}
	return nil
}

func (c *Coordinator) rejected(span trace.Span, auctionID string, bidder models.Bidder, amount float64, err error) {
	reason := rejectionReason(err)
	observability.BidsRejected.WithLabelValues(reason).Inc()
	span.SetAttributes(attribute.String("bid.rejected", reason))
	utils.Info("bid rejected", map[string]any{
		"auction_id": auctionID,
		"user_id":    bidder.UserID,
		"amount":     amount,
		"reason":     reason,
	})
}

func (c *Coordinator) commitFailed(span trace.Span, auctionID string, cause error) error {
	observability.CommitFailures.Inc()
	span.RecordError(cause)
	span.SetStatus(codes.Error, "commit failed")
	utils.Error("bid commit failed", map[string]any{
		"auction_id": auctionID,
		"error":      cause.Error(),
	})
	return fmt.Errorf("coordinator: %w: %w", auctionerrors.ErrCommitFailed, cause)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, auctionerrors.ErrAuctionEnded):
		return "ended"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return "self_bid"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return "too_low"
	}
	return "other"
}
