// Package ledger is the append-only bid history of each auction.
package ledger

import (
	"context"
	"fmt"
	"time"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"
)

// Ledger reads bid history and appends accepted bids
type Ledger struct {
	repo  repository.AuctionDB
	now   func() time.Time
	newID func() string
}

// New creates a Ledger over repo
func New(repo repository.AuctionDB) *Ledger {
	return &Ledger{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: utils.NewBidID,
	}
}

// Append assigns an id and acceptance time to an accepted bid and stages it
// in tx. It must only be called from inside a commit, which is why it takes
// the commit's BidTx rather than opening storage access of its own.
func (l *Ledger) Append(ctx context.Context, tx repository.BidTx, auctionID string, bidder models.Bidder, amount float64) (models.Bid, error) {
	bid := models.Bid{
		BidID:      l.newID(),
		AuctionID:  auctionID,
		UserID:     bidder.UserID,
		BidderName: bidder.DisplayName,
		Amount:     amount,
		CreatedAt:  l.now(),
	}
	if err := tx.AppendBid(ctx, bid); err != nil {
		return models.Bid{}, fmt.Errorf("ledger: append bid to %s: %w", auctionID, err)
	}
	return bid, nil
}

// ListFor returns the bids of an auction, newest first. Each call reads the
// ledger afresh, so the sequence can be restarted by calling it again.
func (l *Ledger) ListFor(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("ledger: %w - empty auction id", auctionerrors.ErrInvalidBid)
	}
	bids, err := l.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list bids for %s: %w", auctionID, err)
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	return bids, nil
}

// ListByUser returns every bid placed by userID, newest first
func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]models.Bid, error) {
	if userID == "" {
		return nil, fmt.Errorf("ledger: %w - empty user id", auctionerrors.ErrInvalidBid)
	}
	bids, err := l.repo.GetBidsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list bids for user %s: %w", userID, err)
	}
	return bids, nil
}
