package handler

import (
	"context"
	"net/http"
	"time"

	"live-auction/internal/auctionerrors"
	"live-auction/internal/bidrules"
	"live-auction/internal/models"
	"live-auction/services/auction/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=auction_handler.go -destination=mock_service.go -package=handler

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, spec models.NewAuction) (models.Auction, error)
	GetAuction(ctx context.Context, auctionID, viewerID string) (models.Auction, error)
	ListActive(ctx context.Context) ([]models.Auction, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Auction, error)
	ListAll(ctx context.Context) ([]models.AuctionWithBids, error)
	SetVisibility(ctx context.Context, auctionID string, hidden bool) (models.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error
	PlaceBid(ctx context.Context, auctionID string, bidder models.Bidder, amount float64) (models.Bid, error)
	MinBid(ctx context.Context, auctionID, viewerID string) (float64, error)
	GetBidsForAuction(ctx context.Context, auctionID, viewerID string) ([]models.Bid, error)
	GetBidsByUser(ctx context.Context, userID string) ([]models.Bid, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
	now     func() time.Time
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service, now: time.Now}
}

func (h *AuctionHandler) itemResponses(items []models.Auction) []helpers.ItemResponse {
	now := h.now()
	out := make([]helpers.ItemResponse, 0, len(items))
	for _, a := range items {
		out = append(out, helpers.ToItemResponse(a, bidrules.MinBid(a.CurrentPrice), now))
	}
	return out
}

// CreateItemHandler handles POST /items
func (h *AuctionHandler) CreateItemHandler(c *gin.Context) {
	owner, ok := helpers.RequireBidder(c, "CreateItemHandler")
	if !ok {
		return
	}

	var req helpers.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateItemHandler", err)
		return
	}

	a, err := h.service.CreateAuction(c.Request.Context(), models.NewAuction{
		Title:         req.Title,
		Description:   req.Description,
		City:          req.City,
		Owner:         owner,
		StartingPrice: req.StartingPrice,
		Duration:      time.Duration(req.DurationHours) * time.Hour,
		Images:        req.Images,
		Thumbnails:    req.Thumbnails,
	})
	if err != nil {
		helpers.RespondError(c, "CreateItemHandler", err, map[string]any{"user_id": owner.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToItemResponse(a, bidrules.MinBid(a.CurrentPrice), h.now()), "item created successfully")
	helpers.LogSuccess("CreateItemHandler", "item created successfully", map[string]any{
		"item_id": a.ID,
		"user_id": owner.UserID,
	})
}

// ListItemsHandler handles GET /items
func (h *AuctionHandler) ListItemsHandler(c *gin.Context) {
	items, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "ListItemsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.itemResponses(items), "items retrieved successfully")
}

// GetItemHandler handles GET /items/:item_id
func (h *AuctionHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	viewer, _ := helpers.CurrentBidder(c)

	a, err := h.service.GetAuction(c.Request.Context(), itemID, viewer.UserID)
	if err != nil {
		helpers.RespondError(c, "GetItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponse(a, bidrules.MinBid(a.CurrentPrice), h.now()), "item retrieved successfully")
}

// PlaceBidHandler handles POST /items/:item_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	bidder, ok := helpers.RequireBidder(c, "PlaceBidHandler")
	if !ok {
		return
	}
	itemID := c.Param("item_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), itemID, bidder, req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"item_id": itemID,
			"user_id": bidder.UserID,
			"amount":  req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":  bid.BidID,
		"item_id": bid.AuctionID,
		"user_id": bidder.UserID,
		"amount":  bid.Amount,
	})
}

// GetBidsByItemHandler handles GET /items/:item_id/bids
func (h *AuctionHandler) GetBidsByItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	viewer, _ := helpers.CurrentBidder(c)

	bids, err := h.service.GetBidsForAuction(c.Request.Context(), itemID, viewer.UserID)
	if err != nil {
		helpers.RespondError(c, "GetBidsByItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
}

// GetMinBidHandler handles GET /items/:item_id/min-bid
func (h *AuctionHandler) GetMinBidHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	viewer, _ := helpers.CurrentBidder(c)

	minBid, err := h.service.MinBid(c.Request.Context(), itemID, viewer.UserID)
	if err != nil {
		helpers.RespondError(c, "GetMinBidHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.MinBidResponse{ItemID: itemID, MinBid: minBid}, "minimum bid retrieved successfully")
}

// requireSelf allows a user to read only their own profile data
func requireSelf(c *gin.Context, handlerName string) (string, bool) {
	caller, ok := helpers.RequireBidder(c, handlerName)
	if !ok {
		return "", false
	}
	userID := c.Param("user_id")
	if caller.UserID != userID {
		helpers.RespondError(c, handlerName, auctionerrors.ErrUnauthenticated, map[string]any{
			"user_id":   userID,
			"caller_id": caller.UserID,
		})
		return "", false
	}
	return userID, true
}

// GetUserListingsHandler handles GET /users/:user_id/listings
func (h *AuctionHandler) GetUserListingsHandler(c *gin.Context) {
	userID, ok := requireSelf(c, "GetUserListingsHandler")
	if !ok {
		return
	}

	items, err := h.service.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetUserListingsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.itemResponses(items), "listings retrieved successfully")
}

// GetUserBidsHandler handles GET /users/:user_id/bids
func (h *AuctionHandler) GetUserBidsHandler(c *gin.Context) {
	userID, ok := requireSelf(c, "GetUserBidsHandler")
	if !ok {
		return
	}

	bids, err := h.service.GetBidsByUser(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetUserBidsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
}
