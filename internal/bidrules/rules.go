// Package bidrules holds the single definition of the bid acceptance rules.
// Both the bid preview endpoint and the commit path evaluate bids through it.
package bidrules

import (
	"fmt"
	"time"

	"live-auction/internal/auctionerrors"

	"github.com/shopspring/decimal"
)

const (
	// MinIncrementRate is the fraction of the current price a new bid must add.
	MinIncrementRate = "0.01"
	// MinIncrementFloor is the smallest increment regardless of price.
	MinIncrementFloor = 5
)

var (
	incrementRate  = decimal.RequireFromString(MinIncrementRate)
	incrementFloor = decimal.NewFromInt(MinIncrementFloor)
)

// State is the slice of auction state the rules look at
type State struct {
	CurrentPrice float64
	EndsAt       time.Time
	OwnerID      string
}

// Proposal is a bid that has not been accepted yet
type Proposal struct {
	BidderID string
	Amount   float64
}

// Decision is the outcome of evaluating a proposal
type Decision struct {
	MinBid    float64
	NextPrice float64
}

// MinIncrement returns max(ceil(currentPrice * 1%), 5).
func MinIncrement(currentPrice float64) float64 {
	inc := decimal.NewFromFloat(currentPrice).Mul(incrementRate).Ceil()
	if inc.LessThan(incrementFloor) {
		inc = incrementFloor
	}
	return inc.InexactFloat64()
}

// MinBid returns the smallest amount acceptable against currentPrice.
func MinBid(currentPrice float64) float64 {
	return decimal.NewFromFloat(currentPrice).
		Add(decimal.NewFromFloat(MinIncrement(currentPrice))).
		InexactFloat64()
}

// Evaluate applies the rules in order: ended, self bid, minimum amount.
// It has no side effects; on acceptance the proposal amount becomes the next price.
func Evaluate(state State, p Proposal, now time.Time) (Decision, error) {
	minBid := MinBid(state.CurrentPrice)
	d := Decision{MinBid: minBid, NextPrice: state.CurrentPrice}

	if !now.Before(state.EndsAt) {
		return d, fmt.Errorf("bidrules: %w", auctionerrors.ErrAuctionEnded)
	}
	if p.BidderID == state.OwnerID {
		return d, fmt.Errorf("bidrules: %w", auctionerrors.ErrSelfBid)
	}
	if decimal.NewFromFloat(p.Amount).LessThan(decimal.NewFromFloat(minBid)) {
		return d, fmt.Errorf("bidrules: %w", &auctionerrors.BidTooLowError{MinBid: minBid})
	}

	d.NextPrice = p.Amount
	return d, nil
}
