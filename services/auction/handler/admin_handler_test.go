package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"live-auction/internal/adminauth"
	"live-auction/internal/auctionerrors"
	"live-auction/internal/audit"
	"live-auction/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestAdminLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokens, err := adminauth.NewManager("s3cret", "admin", "hunter2")
	require.NoError(t, err)
	handler := NewAdminHandler(NewMockAuctionServiceInterface(ctrl), tokens)

	router := newTestRouter()
	router.POST("/admin/login", handler.LoginHandler)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedMsg    string
	}{
		{name: "valid", requestBody: map[string]string{"username": "admin", "password": "hunter2"}, expectedStatus: http.StatusOK, expectedMsg: "login successful"},
		{name: "wrong_password", requestBody: map[string]string{"username": "admin", "password": "nope"}, expectedStatus: http.StatusUnauthorized, expectedMsg: "invalid credentials"},
		{name: "missing_fields", requestBody: map[string]string{}, expectedStatus: http.StatusBadRequest, expectedMsg: "invalid request payload"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/admin/login", "", tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)

			resp := decode(t, w)
			require.Contains(t, resp["message"], tc.expectedMsg)
			if w.Code == http.StatusOK {
				token := resp["data"].(map[string]any)["token"].(string)
				_, err := tokens.Validate(token)
				require.NoError(t, err)
			}
		})
	}
}

func TestAdminItemHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	tokens, err := adminauth.NewManager("s3cret", "admin", "hunter2")
	require.NoError(t, err)
	handler := NewAdminHandler(mockService, tokens)

	router := newTestRouter()
	admin := router.Group("/admin", func(c *gin.Context) {
		c.Set(AdminSubjectKey, "admin")
		c.Next()
	})
	admin.GET("/items", handler.ListItemsHandler)
	admin.POST("/items/:item_id/toggle-hidden", handler.ToggleHiddenHandler)
	admin.DELETE("/items/:item_id", handler.DeleteItemHandler)

	now := time.Now().UTC()
	item := models.Auction{ID: "item01", OwnerID: "owner", CurrentPrice: 100, CreatedAt: now, EndsAt: now.Add(time.Hour)}

	t.Run("list_all", func(t *testing.T) {
		hidden := item
		hidden.ID, hidden.Hidden = "item02", true
		mockService.EXPECT().ListAll(gomock.Any()).Return([]models.AuctionWithBids{
			{Auction: hidden, Bids: []models.Bid{
				{BidID: "b2", AuctionID: "item02", UserID: "user2", Amount: 110, CreatedAt: now.Add(time.Second)},
				{BidID: "b1", AuctionID: "item02", UserID: "user1", Amount: 105, CreatedAt: now},
			}},
			{Auction: item, Bids: []models.Bid{}},
		}, nil)

		w := doJSON(router, http.MethodGet, "/admin/items", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)["data"].([]any)
		require.Len(t, data, 2)

		first := data[0].(map[string]any)
		require.Equal(t, "item02", first["id"])
		require.Equal(t, true, first["hidden"])
		bids := first["bids"].([]any)
		require.Len(t, bids, 2)
		require.Equal(t, "b2", bids[0].(map[string]any)["bid_id"])
		require.Equal(t, 110.0, bids[0].(map[string]any)["amount"])
		require.Equal(t, "b1", bids[1].(map[string]any)["bid_id"])

		require.Empty(t, data[1].(map[string]any)["bids"])
		require.NotNil(t, data[1].(map[string]any)["bids"])
	})

	t.Run("toggle_hidden_records_actor", func(t *testing.T) {
		hidden := item
		hidden.Hidden = true
		mockService.EXPECT().SetVisibility(gomock.Any(), "item01", true).
			DoAndReturn(func(ctx context.Context, _ string, _ bool) (models.Auction, error) {
				require.Equal(t, "admin", audit.ActorFrom(ctx))
				return hidden, nil
			})

		w := doJSON(router, http.MethodPost, "/admin/items/item01/toggle-hidden", "", map[string]bool{"hidden": true})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, true, decode(t, w)["data"].(map[string]any)["hidden"])
	})

	t.Run("toggle_hidden_requires_flag", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/admin/items/item01/toggle-hidden", "", map[string]any{})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		mockService.EXPECT().DeleteAuction(gomock.Any(), "item01").Return(nil)

		w := doJSON(router, http.MethodDelete, "/admin/items/item01", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete_unknown", func(t *testing.T) {
		mockService.EXPECT().DeleteAuction(gomock.Any(), "nope00").Return(auctionerrors.ErrNotFound)

		w := doJSON(router, http.MethodDelete, "/admin/items/nope00", "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
