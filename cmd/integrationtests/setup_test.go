package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"live-auction/internal/adminauth"
	auction "live-auction/internal/auctionService"
	"live-auction/internal/broadcast"
	"live-auction/internal/coordinator"
	"live-auction/internal/ledger"
	"live-auction/internal/models"
	"live-auction/internal/registry"
	"live-auction/internal/repository"
	"live-auction/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	adminUser     = "admin"
	adminPassword = "s3cret"
)

// testApp is the full stack on an in-memory repository
type testApp struct {
	router *gin.Engine
	repo   *repository.MemoryRepo
	hub    *broadcast.Hub
	tokens *adminauth.Manager
}

// SetupTestApp initializes the router with in-memory repository for integration testing.
func SetupTestApp(t *testing.T, items ...models.Auction) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, item := range items {
		repo.AddAuction(item)
	}

	hub := broadcast.NewHub(broadcast.WithHeartbeat(time.Hour))
	t.Cleanup(hub.Close)

	l := ledger.New(repo)
	coord := coordinator.New(repo, l, coordinator.WithPublisher(hub))
	service := auction.NewAuctionService(registry.New(repo), l, coord)

	tokens, err := adminauth.NewManager("integration-secret", adminUser, adminPassword)
	require.NoError(t, err)

	router := server.SetupRouter(server.Deps{Service: service, Feed: hub, Tokens: tokens})
	return &testApp{router: router, repo: repo, hub: hub, tokens: tokens}
}

// liveItem returns an auction that is open for another day
func liveItem(id, owner string, price float64) models.Auction {
	now := time.Now().UTC()
	return models.Auction{
		ID:            id,
		Title:         id + " title",
		City:          "Riyadh",
		OwnerID:       owner,
		SellerName:    "@" + owner,
		StartingPrice: price,
		CurrentPrice:  price,
		CreatedAt:     now,
		EndsAt:        now.Add(24 * time.Hour),
	}
}

// ExecuteRequestAndParse executes an HTTP request as userID (anonymous when
// empty) and parses the JSON envelope
func ExecuteRequestAndParse(t *testing.T, app *testApp, method, url, userID string, body any, headers ...string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Name", "@"+userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// adminToken logs in through the API
func adminToken(t *testing.T, app *testApp) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, app, "POST", "/admin/login", "", map[string]string{
		"username": adminUser,
		"password": adminPassword,
	})
	require.Equal(t, 200, w.Code)
	return resp["data"].(map[string]any)["token"].(string)
}
