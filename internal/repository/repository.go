package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionFilter narrows ListAuctions. Zero values disable a condition.
type AuctionFilter struct {
	ActiveAt      time.Time // only auctions ending after this instant
	OwnerID       string
	IncludeHidden bool
}

// BidTx is the storage view available inside a commit for one auction.
// It is the only way to append bids or move an auction's current price.
type BidTx interface {
	// Auction returns the locked, current state of the auction.
	Auction(ctx context.Context) (models.Auction, error)
	AppendBid(ctx context.Context, bid models.Bid) error
	UpdateCurrentPrice(ctx context.Context, price float64) error
}

// AuctionDB defines the storage interface for auctions and their bid ledger
type AuctionDB interface {
	GetAuction(ctx context.Context, auctionID string) (models.Auction, error)
	AuctionExists(ctx context.Context, auctionID string) (bool, error)
	InsertAuction(ctx context.Context, auction models.Auction) error
	ListAuctions(ctx context.Context, filter AuctionFilter) ([]models.Auction, error)
	SetHidden(ctx context.Context, auctionID string, hidden bool) (models.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error
	GetBidsByAuction(ctx context.Context, auctionID string) ([]models.Bid, error)
	GetBidsByUser(ctx context.Context, userID string) ([]models.Bid, error)
	// RunInTx runs fn with a BidTx scoped to auctionID. Writes staged through
	// the tx become visible together when fn returns nil, or not at all.
	RunInTx(ctx context.Context, auctionID string, fn func(ctx context.Context, tx BidTx) error) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]models.Auction // key: auctionID -> value: auction
	bids     map[string][]models.Bid   // key: auctionID -> value: bids in acceptance order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]models.Auction),
		bids:     make(map[string][]models.Bid),
	}
}

// GetAuction returns a single auction with its bid count
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getLocked(auctionID)
}

func (r *MemoryRepo) getLocked(auctionID string) (models.Auction, error) {
	a, ok := r.auctions[auctionID]
	if !ok {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	a.BidCount = len(r.bids[auctionID])
	a.Images = append([]string(nil), a.Images...)
	a.Thumbnails = append([]string(nil), a.Thumbnails...)
	return a, nil
}

// AuctionExists reports whether the id is taken
func (r *MemoryRepo) AuctionExists(_ context.Context, auctionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.auctions[auctionID]
	return ok, nil
}

// InsertAuction stores a new auction; the id must not be taken
func (r *MemoryRepo) InsertAuction(_ context.Context, auction models.Auction) error {
	if auction.ID == "" {
		return fmt.Errorf("insert auction: %w - empty id", auctionerrors.ErrInvalidAuction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.ID]; ok {
		return fmt.Errorf("insert auction %s: %w", auction.ID, auctionerrors.ErrDuplicateID)
	}
	auction.BidCount = 0
	r.auctions[auction.ID] = auction
	return nil
}

// ListAuctions returns matching auctions, newest first
func (r *MemoryRepo) ListAuctions(_ context.Context, filter AuctionFilter) ([]models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Auction, 0, len(r.auctions))
	for id, a := range r.auctions {
		if !filter.ActiveAt.IsZero() && !a.EndsAt.After(filter.ActiveAt) {
			continue
		}
		if filter.OwnerID != "" && a.OwnerID != filter.OwnerID {
			continue
		}
		if !filter.IncludeHidden && a.Hidden {
			continue
		}
		full, _ := r.getLocked(id)
		out = append(out, full)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetHidden toggles admin visibility. It never touches the current price.
func (r *MemoryRepo) SetHidden(_ context.Context, auctionID string, hidden bool) (models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return models.Auction{}, fmt.Errorf("set hidden %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	a.Hidden = hidden
	r.auctions[auctionID] = a
	return r.getLocked(auctionID)
}

// DeleteAuction removes an auction together with its bid history
func (r *MemoryRepo) DeleteAuction(_ context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	delete(r.auctions, auctionID)
	delete(r.bids, auctionID)
	return nil
}

// GetBidsByAuction returns the bids of an auction, newest first
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	return newestFirst(r.bids[auctionID]), nil
}

// GetBidsByUser returns all bids a user placed, newest first
func (r *MemoryRepo) GetBidsByUser(_ context.Context, userID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Bid
	for _, bids := range r.bids {
		for _, b := range bids {
			if b.UserID == userID {
				out = append(out, b)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if out == nil {
		out = []models.Bid{}
	}
	return out, nil
}

func newestFirst(bids []models.Bid) []models.Bid {
	out := make([]models.Bid, len(bids))
	for i, b := range bids {
		out[len(bids)-1-i] = b
	}
	return out
}

// RunInTx stages the writes of fn and applies them under the write lock.
// Serializing callers on the same auction is the coordinator's job; the
// repo only guarantees readers never see a bid without its price update.
func (r *MemoryRepo) RunInTx(ctx context.Context, auctionID string, fn func(ctx context.Context, tx BidTx) error) error {
	tx := &memoryTx{repo: r, auctionID: auctionID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit auction %s: %w", auctionID, err)
	}
	return tx.commit()
}

type memoryTx struct {
	repo      *MemoryRepo
	auctionID string
	staged    []models.Bid
	price     *float64
}

func (tx *memoryTx) Auction(_ context.Context) (models.Auction, error) {
	tx.repo.mu.RLock()
	defer tx.repo.mu.RUnlock()

	return tx.repo.getLocked(tx.auctionID)
}

func (tx *memoryTx) AppendBid(_ context.Context, bid models.Bid) error {
	if bid.AuctionID != tx.auctionID {
		return fmt.Errorf("append bid: %w - bid for %s in tx for %s", auctionerrors.ErrInvalidBid, bid.AuctionID, tx.auctionID)
	}
	tx.staged = append(tx.staged, bid)
	return nil
}

func (tx *memoryTx) UpdateCurrentPrice(_ context.Context, price float64) error {
	tx.price = &price
	return nil
}

func (tx *memoryTx) commit() error {
	if len(tx.staged) == 0 && tx.price == nil {
		return nil
	}

	r := tx.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[tx.auctionID]
	if !ok {
		return fmt.Errorf("commit auction %s: %w", tx.auctionID, auctionerrors.ErrNotFound)
	}
	r.bids[tx.auctionID] = append(r.bids[tx.auctionID], tx.staged...)
	if tx.price != nil {
		a.CurrentPrice = *tx.price
		r.auctions[tx.auctionID] = a
	}
	return nil
}

// AddAuction stores an auction as-is, bypassing id checks. Intended for seeding and tests.
func (r *MemoryRepo) AddAuction(auction models.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.ID] = auction
}
