package utils

import (
	"github.com/google/uuid"
)

// NewBidID returns a time-ordered UUIDv7 so bid ids sort in acceptance order.
// Falls back to a random v4 if the clock source fails.
func NewBidID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
