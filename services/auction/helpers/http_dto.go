package helpers

import (
	"time"

	"live-auction/internal/models"
)

// Request/Response DTOs
type CreateItemRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	City          string   `json:"city" binding:"required"`
	StartingPrice float64  `json:"starting_price" binding:"required,gt=0"`
	DurationHours int      `json:"duration_hours" binding:"required,gte=1,lte=720"`
	Images        []string `json:"images" binding:"omitempty,max=10,dive,url"`
	Thumbnails    []string `json:"thumbnails" binding:"omitempty,max=10,dive,url"`
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type ToggleHiddenRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type BidResponse struct {
	BidID      string  `json:"bid_id"`
	ItemID     string  `json:"item_id"`
	UserID     string  `json:"user_id"`
	BidderName string  `json:"bidder_name"`
	Amount     float64 `json:"amount"`
	CreatedAt  string  `json:"created_at"`
}

type ItemResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	City          string   `json:"city"`
	OwnerID       string   `json:"owner_id"`
	SellerName    string   `json:"seller_name"`
	StartingPrice float64  `json:"starting_price"`
	CurrentPrice  float64  `json:"current_price"`
	MinBid        float64  `json:"min_bid"`
	CreatedAt     string   `json:"created_at"`
	EndsAt        string   `json:"ends_at"`
	Ended         bool     `json:"ended"`
	Hidden        bool     `json:"hidden"`
	Images        []string `json:"images"`
	Thumbnails    []string `json:"thumbnails"`
	BidCount      int      `json:"bid_count"`
}

// AdminItemResponse is an item as seen by admins, with its bids newest first
type AdminItemResponse struct {
	ItemResponse
	Bids []BidResponse `json:"bids"`
}

type MinBidResponse struct {
	ItemID string  `json:"item_id"`
	MinBid float64 `json:"min_bid"`
}

type AdminLoginResponse struct {
	Token string `json:"token"`
}

// ToBidResponse converts a ledger entry to its wire form
func ToBidResponse(b models.Bid) BidResponse {
	return BidResponse{
		BidID:      b.BidID,
		ItemID:     b.AuctionID,
		UserID:     b.UserID,
		BidderName: b.BidderName,
		Amount:     b.Amount,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ToBidResponses(bids []models.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, ToBidResponse(b))
	}
	return out
}

// ToItemResponse converts an auction; minBid is the preview computed by the caller
func ToItemResponse(a models.Auction, minBid float64, now time.Time) ItemResponse {
	return ItemResponse{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		City:          a.City,
		OwnerID:       a.OwnerID,
		SellerName:    a.SellerName,
		StartingPrice: a.StartingPrice,
		CurrentPrice:  a.CurrentPrice,
		MinBid:        minBid,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		EndsAt:        a.EndsAt.UTC().Format(time.RFC3339),
		Ended:         a.Ended(now),
		Hidden:        a.Hidden,
		Images:        nonNil(a.Images),
		Thumbnails:    nonNil(a.Thumbnails),
		BidCount:      a.BidCount,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
