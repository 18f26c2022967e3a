package server

import (
	"context"
	"net/http"

	"live-auction/internal/adminauth"
	handler "live-auction/services/auction/handler"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether one backend is usable
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the router wires into handlers. Limiter and
// Tokens are optional: without a limiter bids are not rate limited and
// without tokens the admin routes are not registered.
type Deps struct {
	Service handler.AuctionServiceInterface
	Feed    handler.Feed
	Limiter Limiter
	Tokens  *adminauth.Manager
	Health  map[string]HealthCheck
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(TracingMiddleware)
	router.Use(IdentityMiddleware)

	auctionHandler := handler.NewAuctionHandler(d.Service)
	liveHandler := handler.NewLiveHandler(d.Feed, d.Service)

	bidGuards := []gin.HandlerFunc{}
	if d.Limiter != nil {
		bidGuards = append(bidGuards, RateLimitMiddleware(d.Limiter))
	}

	items := router.Group("/items")
	{
		items.GET("", auctionHandler.ListItemsHandler)
		items.POST("", auctionHandler.CreateItemHandler)
		items.GET("/:item_id", auctionHandler.GetItemHandler)
		items.GET("/:item_id/bids", auctionHandler.GetBidsByItemHandler)
		items.POST("/:item_id/bids", append(bidGuards, auctionHandler.PlaceBidHandler)...)
		items.GET("/:item_id/min-bid", auctionHandler.GetMinBidHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/listings", auctionHandler.GetUserListingsHandler)
		users.GET("/:user_id/bids", auctionHandler.GetUserBidsHandler)
	}

	router.GET("/realtime", liveHandler.StreamHandler)

	if d.Tokens != nil {
		adminHandler := handler.NewAdminHandler(d.Service, d.Tokens)
		router.POST("/admin/login", adminHandler.LoginHandler)

		admin := router.Group("/admin", AdminAuthMiddleware(d.Tokens))
		{
			admin.GET("/items", adminHandler.ListItemsHandler)
			admin.POST("/items/:item_id/toggle-hidden", adminHandler.ToggleHiddenHandler)
			admin.DELETE("/items/:item_id", adminHandler.DeleteItemHandler)
		}
	}

	router.GET("/healthz", healthHandler(d.Health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		message := "healthy"
		if status != http.StatusOK {
			message = "unhealthy"
		}
		utils.JSONResponse(c, status, results, message)
	}
}
