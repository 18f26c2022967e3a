package helpers

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/models"
	"live-auction/utils"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"

	bidderKey = "bidder"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	var tooLow *auctionerrors.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		return http.StatusBadRequest, fmt.Sprintf("your bid is too low, minimum is %s SAR", auctionerrors.FormatAmount(tooLow.MinBid))
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, auctionerrors.ErrAuctionEnded):
		return http.StatusBadRequest, "you're too late, this auction has ended"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusBadRequest, "you can't bid on your own item"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusBadRequest, "your bid is too low"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid item details"
	case errors.Is(err, auctionerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auctionerrors.ErrCommitFailed):
		return http.StatusInternalServerError, "could not record your bid, please try again"
	case errors.Is(err, auctionerrors.ErrIDSpaceExhausted):
		return http.StatusInternalServerError, "could not allocate an item id"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes the mapped error. Expected outcomes are logged at info,
// everything that maps to a 5xx at error.
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	var details gin.H
	var tooLow *auctionerrors.BidTooLowError
	if errors.As(err, &tooLow) {
		details = gin.H{"min_bid": tooLow.MinBid}
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, details)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Info(handlerName+": request rejected", fields)
}

// SetBidder stores the caller identity resolved from the identity provider
func SetBidder(c *gin.Context, b models.Bidder) {
	c.Set(bidderKey, b)
}

// CurrentBidder returns the caller identity, if one was supplied
func CurrentBidder(c *gin.Context) (models.Bidder, bool) {
	v, ok := c.Get(bidderKey)
	if !ok {
		return models.Bidder{}, false
	}
	b, ok := v.(models.Bidder)
	return b, ok && b.UserID != ""
}

// RequireBidder writes a 401 and returns false when the caller is anonymous
func RequireBidder(c *gin.Context, handlerName string) (models.Bidder, bool) {
	b, ok := CurrentBidder(c)
	if !ok {
		RespondError(c, handlerName, auctionerrors.ErrUnauthenticated, nil)
		return models.Bidder{}, false
	}
	return b, true
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
