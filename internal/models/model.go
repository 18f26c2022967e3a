package models

import "time"

// Bidder is the identity supplied by the external identity provider
type Bidder struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Auction represents a timed listing (an "item" in the public API)
type Auction struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	City          string    `json:"city"`
	OwnerID       string    `json:"owner_id"`
	SellerName    string    `json:"seller_name"`
	StartingPrice float64   `json:"starting_price"`
	CurrentPrice  float64   `json:"current_price"`
	CreatedAt     time.Time `json:"created_at"`
	EndsAt        time.Time `json:"ends_at"`
	Hidden        bool      `json:"hidden"`
	Images        []string  `json:"images"`
	Thumbnails    []string  `json:"thumbnails"`
	BidCount      int       `json:"bid_count"`
}

// Ended reports whether bidding is closed at the given instant.
func (a Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndsAt)
}

// Summary returns the broadcastable view of the auction
func (a Auction) Summary() AuctionSummary {
	return AuctionSummary{
		ID:           a.ID,
		Title:        a.Title,
		CurrentPrice: a.CurrentPrice,
		EndsAt:       a.EndsAt,
		BidCount:     a.BidCount,
		OwnerID:      a.OwnerID,
		Hidden:       a.Hidden,
	}
}

// AuctionWithBids is an auction together with its bid history, newest first
type AuctionWithBids struct {
	Auction
	Bids []Bid `json:"bids"`
}

// NewAuction is the input for listing creation
type NewAuction struct {
	Title         string
	Description   string
	City          string
	Owner         Bidder
	StartingPrice float64
	Duration      time.Duration
	Images        []string
	Thumbnails    []string
}

// Bid represents an accepted bid on an auction. Bids are immutable.
type Bid struct {
	BidID      string    `json:"bid_id"`
	AuctionID  string    `json:"auction_id"`
	UserID     string    `json:"user_id"`
	BidderName string    `json:"bidder_name"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventKind identifies a broadcast event
type EventKind string

const (
	EventBidPlaced EventKind = "bid_placed"
)

// AuctionSummary is the part of an auction carried in broadcast events
type AuctionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CurrentPrice float64   `json:"current_price"`
	EndsAt       time.Time `json:"ends_at"`
	BidCount     int       `json:"bid_count"`
	OwnerID      string    `json:"owner_id"`
	Hidden       bool      `json:"hidden"`
}

// Event is published by the broadcast hub after each committed bid
type Event struct {
	Type      EventKind      `json:"type"`
	AuctionID string         `json:"item_id"`
	Bid       Bid            `json:"bid"`
	Auction   AuctionSummary `json:"item"`
}

// VisibleTo reports whether viewerID may see the event. Events of hidden
// auctions only reach the owner.
func (e Event) VisibleTo(viewerID string) bool {
	return !e.Auction.Hidden || e.Auction.OwnerID == viewerID
}
