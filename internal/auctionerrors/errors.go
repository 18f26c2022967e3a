package auctionerrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Lookup errors
var (
	ErrNotFound = errors.New("auction not found")
)

// Bid rejection reasons. These are expected outcomes, not faults.
var (
	ErrAuctionEnded = errors.New("auction has ended")
	ErrSelfBid      = errors.New("cannot bid on own auction")
	ErrBidTooLow    = errors.New("bid amount too low")
)

// Boundary validation errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAuction = errors.New("invalid auction")
	// ErrDuplicateID means an insert lost the race for a freshly drawn id.
	ErrDuplicateID     = errors.New("auction id already taken")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Infrastructure errors
var (
	ErrIDSpaceExhausted = errors.New("could not generate unique short id")
	ErrCommitFailed     = errors.New("bid commit failed")
)

// BidTooLowError carries the minimum acceptable amount for a rejected bid.
type BidTooLowError struct {
	MinBid float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s - minimum is %s", ErrBidTooLow, FormatAmount(e.MinBid))
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }

// IsRejection reports whether err is a non-retryable bid rejection. It also
// recognises sentinels attached with errors.Mark by the Postgres store.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAuctionEnded) ||
		errors.Is(err, ErrSelfBid) ||
		errors.Is(err, ErrBidTooLow)
}

// FormatAmount renders an amount without a trailing ".00" for whole values.
func FormatAmount(amount float64) string {
	d := decimal.NewFromFloat(amount)
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}
