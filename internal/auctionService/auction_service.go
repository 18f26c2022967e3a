package auction

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/coordinator"
	"live-auction/internal/ledger"
	"live-auction/internal/models"
	"live-auction/internal/registry"
)

// AuctionService is the entry point used by the HTTP layer. Reads go to the
// registry and ledger; every bid goes through the coordinator.
type AuctionService struct {
	registry    *registry.Registry
	ledger      *ledger.Ledger
	coordinator *coordinator.Coordinator
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(reg *registry.Registry, l *ledger.Ledger, c *coordinator.Coordinator) *AuctionService {
	return &AuctionService{
		registry:    reg,
		ledger:      l,
		coordinator: c,
	}
}

// CreateAuction lists a new item for the given owner
func (s *AuctionService) CreateAuction(ctx context.Context, spec models.NewAuction) (models.Auction, error) {
	a, err := s.registry.Create(ctx, spec)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for %s: %w", spec.Owner.UserID, err)
	}
	return a, nil
}

// GetAuction returns a single auction. Hidden auctions are only visible to their owner.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID, viewerID string) (models.Auction, error) {
	a, err := s.registry.Get(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	if a.Hidden && a.OwnerID != viewerID {
		return models.Auction{}, fmt.Errorf("service: %w - auction %s is hidden", auctionerrors.ErrNotFound, auctionID)
	}
	return a, nil
}

// ListActive returns visible auctions still open for bidding, newest first
func (s *AuctionService) ListActive(ctx context.Context) ([]models.Auction, error) {
	out, err := s.registry.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active auctions: %w", err)
	}
	return out, nil
}

// ListByOwner returns every listing of ownerID, hidden and ended ones included
func (s *AuctionService) ListByOwner(ctx context.Context, ownerID string) ([]models.Auction, error) {
	out, err := s.registry.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions of %s: %w", ownerID, err)
	}
	return out, nil
}

// ListAll returns every auction with its bid history for admin tooling.
// Auctions deleted while the list is assembled are left out.
func (s *AuctionService) ListAll(ctx context.Context) ([]models.AuctionWithBids, error) {
	auctions, err := s.registry.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	out := make([]models.AuctionWithBids, 0, len(auctions))
	for _, a := range auctions {
		bids, err := s.ledger.ListFor(ctx, a.ID)
		if errors.Is(err, auctionerrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("service: failed to list bids of %s: %w", a.ID, err)
		}
		out = append(out, models.AuctionWithBids{Auction: a, Bids: bids})
	}
	return out, nil
}

// SetVisibility hides or shows an auction
func (s *AuctionService) SetVisibility(ctx context.Context, auctionID string, hidden bool) (models.Auction, error) {
	a, err := s.registry.SetVisibility(ctx, auctionID, hidden)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to set visibility of %s: %w", auctionID, err)
	}
	return a, nil
}

// DeleteAuction removes an auction and its bids
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID string) error {
	if err := s.registry.Delete(ctx, auctionID); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}
	return nil
}

// PlaceBid submits a bid through the commit coordinator. The error is
// returned unwrapped so callers see the rejection reason verbatim.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID string, bidder models.Bidder, amount float64) (models.Bid, error) {
	return s.coordinator.SubmitBid(ctx, auctionID, bidder, amount)
}

// MinBid previews the smallest acceptable next bid. Hidden auctions follow
// the same visibility rule as GetAuction.
func (s *AuctionService) MinBid(ctx context.Context, auctionID, viewerID string) (float64, error) {
	if _, err := s.GetAuction(ctx, auctionID, viewerID); err != nil {
		return 0, err
	}
	return s.coordinator.MinBid(ctx, auctionID)
}

// GetBidsForAuction returns the bid history of an auction, newest first.
// Hidden auctions follow the same visibility rule as GetAuction.
func (s *AuctionService) GetBidsForAuction(ctx context.Context, auctionID, viewerID string) ([]models.Bid, error) {
	if _, err := s.GetAuction(ctx, auctionID, viewerID); err != nil {
		return nil, err
	}
	bids, err := s.ledger.ListFor(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetBidsByUser returns every bid a user placed, newest first
func (s *AuctionService) GetBidsByUser(ctx context.Context, userID string) ([]models.Bid, error) {
	bids, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", userID, err)
	}
	return bids, nil
}
