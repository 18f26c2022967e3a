package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/idgen"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"
)

const (
	MinDuration = time.Hour
	MaxDuration = 30 * 24 * time.Hour
)

// Auditor records admin actions. Implementations must be safe for concurrent use.
type Auditor interface {
	Record(ctx context.Context, action, auctionID string, data map[string]any) error
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, string, string, map[string]any) error { return nil }

// Registry owns auction records: creation, lookup, visibility and deletion.
// It never writes an auction's current price; only commits do.
type Registry struct {
	repo    repository.AuctionDB
	ids     *idgen.Generator
	auditor Auditor
	now     func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithAuditor records visibility changes and deletions
func WithAuditor(a Auditor) Option {
	return func(r *Registry) { r.auditor = a }
}

// WithIDGenerator replaces the default short id generator
func WithIDGenerator(g *idgen.Generator) Option {
	return func(r *Registry) { r.ids = g }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(repo repository.AuctionDB, opts ...Option) *Registry {
	r := &Registry{
		repo:    repo,
		ids:     idgen.New(),
		auditor: nopAuditor{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns one auction
func (r *Registry) Get(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("registry: %w - empty auction id", auctionerrors.ErrNotFound)
	}
	a, err := r.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("registry: get %s: %w", auctionID, err)
	}
	return a, nil
}

// Create validates the listing, assigns a unique short id and stores it.
// The current price starts at the starting price and the end time is fixed here.
func (r *Registry) Create(ctx context.Context, spec models.NewAuction) (models.Auction, error) {
	if err := validate(spec); err != nil {
		return models.Auction{}, err
	}

	now := r.now()
	a := models.Auction{
		Title:         strings.TrimSpace(spec.Title),
		Description:   strings.TrimSpace(spec.Description),
		City:          spec.City,
		OwnerID:       spec.Owner.UserID,
		SellerName:    spec.Owner.DisplayName,
		StartingPrice: spec.StartingPrice,
		CurrentPrice:  spec.StartingPrice,
		CreatedAt:     now,
		EndsAt:        now.Add(spec.Duration),
		Images:        nonNil(spec.Images),
		Thumbnails:    nonNil(spec.Thumbnails),
	}

	id, err := r.ids.Insert(ctx, r.repo.AuctionExists, func(ctx context.Context, id string) error {
		a.ID = id
		return r.repo.InsertAuction(ctx, a)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("registry: create auction: %w", err)
	}
	a.ID = id

	utils.Info("auction created", map[string]any{
		"auction_id": a.ID,
		"owner_id":   a.OwnerID,
		"ends_at":    a.EndsAt.Format(time.RFC3339),
	})
	return a, nil
}

func validate(spec models.NewAuction) error {
	switch {
	case strings.TrimSpace(spec.Title) == "":
		return fmt.Errorf("registry: %w - missing title", auctionerrors.ErrInvalidAuction)
	case !models.IsKnownCity(spec.City):
		return fmt.Errorf("registry: %w - unknown city %q", auctionerrors.ErrInvalidAuction, spec.City)
	case spec.StartingPrice <= 0:
		return fmt.Errorf("registry: %w - starting price must be positive", auctionerrors.ErrInvalidAuction)
	case spec.Duration < MinDuration || spec.Duration > MaxDuration:
		return fmt.Errorf("registry: %w - duration out of range", auctionerrors.ErrInvalidAuction)
	case spec.Owner.UserID == "":
		return fmt.Errorf("registry: %w - missing owner", auctionerrors.ErrUnauthenticated)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListActive returns visible auctions that have not ended, newest first
func (r *Registry) ListActive(ctx context.Context) ([]models.Auction, error) {
	out, err := r.repo.ListAuctions(ctx, repository.AuctionFilter{ActiveAt: r.now()})
	if err != nil {
		return nil, fmt.Errorf("registry: list active: %w", err)
	}
	return out, nil
}

// ListByOwner returns all of an owner's auctions including hidden and ended ones
func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]models.Auction, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("registry: %w - empty owner id", auctionerrors.ErrUnauthenticated)
	}
	out, err := r.repo.ListAuctions(ctx, repository.AuctionFilter{OwnerID: ownerID, IncludeHidden: true})
	if err != nil {
		return nil, fmt.Errorf("registry: list by owner %s: %w", ownerID, err)
	}
	return out, nil
}

// ListAll returns every auction, newest first. For admin tooling.
func (r *Registry) ListAll(ctx context.Context) ([]models.Auction, error) {
	out, err := r.repo.ListAuctions(ctx, repository.AuctionFilter{IncludeHidden: true})
	if err != nil {
		return nil, fmt.Errorf("registry: list all: %w", err)
	}
	return out, nil
}

// SetVisibility hides or shows an auction
func (r *Registry) SetVisibility(ctx context.Context, auctionID string, hidden bool) (models.Auction, error) {
	a, err := r.repo.SetHidden(ctx, auctionID, hidden)
	if err != nil {
		return models.Auction{}, fmt.Errorf("registry: set visibility %s: %w", auctionID, err)
	}
	r.audit(ctx, "item.visibility", auctionID, map[string]any{"hidden": hidden})
	return a, nil
}

// Delete removes an auction and its bid history
func (r *Registry) Delete(ctx context.Context, auctionID string) error {
	if err := r.repo.DeleteAuction(ctx, auctionID); err != nil {
		return fmt.Errorf("registry: delete %s: %w", auctionID, err)
	}
	r.audit(ctx, "item.deleted", auctionID, nil)
	return nil
}

func (r *Registry) audit(ctx context.Context, action, auctionID string, data map[string]any) {
	if err := r.auditor.Record(ctx, action, auctionID, data); err != nil {
		utils.Warn("registry: audit record failed", map[string]any{
			"action":     action,
			"auction_id": auctionID,
			"error":      err.Error(),
		})
	}
}
