package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"live-auction/internal/adminauth"
	"live-auction/internal/audit"
	"live-auction/internal/bidrules"
	"live-auction/services/auction/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

// AdminSubjectKey is where the admin middleware stores the token subject
const AdminSubjectKey = "admin_subject"

type TokenIssuer interface {
	Login(username, password string) (string, error)
}

type AdminHandler struct {
	service AuctionServiceInterface
	tokens  TokenIssuer
	now     func() time.Time
}

func NewAdminHandler(service AuctionServiceInterface, tokens TokenIssuer) *AdminHandler {
	return &AdminHandler{service: service, tokens: tokens, now: time.Now}
}

// adminContext carries the acting admin into the audit trail
func adminContext(c *gin.Context) context.Context {
	return audit.WithActor(c.Request.Context(), c.GetString(AdminSubjectKey))
}

// LoginHandler handles POST /admin/login
func (h *AdminHandler) LoginHandler(c *gin.Context) {
	var req helpers.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	token, err := h.tokens.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, adminauth.ErrInvalidCredentials) {
			utils.JSONError(c, http.StatusUnauthorized, err, "invalid credentials")
			utils.Warn("LoginHandler: invalid credentials", map[string]any{"username": req.Username})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, fmt.Errorf("login failed: %w", err), "login failed")
		utils.Error("LoginHandler: token issue failed", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.AdminLoginResponse{Token: token}, "login successful")
	helpers.LogSuccess("LoginHandler", "admin logged in", map[string]any{"username": req.Username})
}

// ListItemsHandler handles GET /admin/items
func (h *AdminHandler) ListItemsHandler(c *gin.Context) {
	items, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "AdminListItemsHandler", err, nil)
		return
	}

	now := h.now()
	out := make([]helpers.AdminItemResponse, 0, len(items))
	for _, a := range items {
		out = append(out, helpers.AdminItemResponse{
			ItemResponse: helpers.ToItemResponse(a.Auction, bidrules.MinBid(a.CurrentPrice), now),
			Bids:         helpers.ToBidResponses(a.Bids),
		})
	}
	utils.JSONResponse(c, http.StatusOK, out, "items retrieved successfully")
}

// ToggleHiddenHandler handles POST /admin/items/:item_id/toggle-hidden
func (h *AdminHandler) ToggleHiddenHandler(c *gin.Context) {
	itemID := c.Param("item_id")

	var req helpers.ToggleHiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ToggleHiddenHandler", err)
		return
	}

	a, err := h.service.SetVisibility(adminContext(c), itemID, *req.Hidden)
	if err != nil {
		helpers.RespondError(c, "ToggleHiddenHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponse(a, bidrules.MinBid(a.CurrentPrice), h.now()), "item updated successfully")
	helpers.LogSuccess("ToggleHiddenHandler", "item visibility changed", map[string]any{
		"item_id": itemID,
		"hidden":  a.Hidden,
		"admin":   c.GetString(AdminSubjectKey),
	})
}

// DeleteItemHandler handles DELETE /admin/items/:item_id
func (h *AdminHandler) DeleteItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")

	if err := h.service.DeleteAuction(adminContext(c), itemID); err != nil {
		helpers.RespondError(c, "DeleteItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"item_id": itemID}, "item deleted successfully")
	helpers.LogSuccess("DeleteItemHandler", "item deleted", map[string]any{
		"item_id": itemID,
		"admin":   c.GetString(AdminSubjectKey),
	})
}
