package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"live-auction/internal/adminauth"
	"live-auction/internal/models"
	"live-auction/internal/observability"
	"live-auction/services/auction/handler"
	"live-auction/services/auction/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// RequestLoggerMiddleware logs incoming requests with timing and counts them
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status()), c.Request.Method).Inc()

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// TracingMiddleware starts a server span, continuing any propagated trace
func TracingMiddleware(c *gin.Context) {
	ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
	ctx, span := otel.Tracer(observability.TracerName).Start(ctx, c.Request.Method+" "+c.FullPath())
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.url", c.Request.URL.String()),
	)

	c.Request = c.Request.WithContext(ctx)
	c.Next()

	span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
}

// IdentityMiddleware trusts the identity provider's headers. Requests
// without a user id stay anonymous; handlers decide whether that is allowed.
func IdentityMiddleware(c *gin.Context) {
	if userID := strings.TrimSpace(c.GetHeader(helpers.HeaderUserID)); userID != "" {
		name := strings.TrimSpace(c.GetHeader(helpers.HeaderUserName))
		if name == "" {
			name = "Anonymous"
		}
		helpers.SetBidder(c, models.Bidder{UserID: userID, DisplayName: name})
	}
	c.Next()
}

// Limiter counts hits per key
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitMiddleware limits bid submissions per user, falling back to the
// client IP for anonymous callers. If the limiter itself fails the request
// is let through.
func RateLimitMiddleware(rl Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "bid:ip:" + c.ClientIP()
		if b, ok := helpers.CurrentBidder(c); ok {
			key = "bid:user:" + b.UserID
		}

		allowed, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			utils.Warn("rate limiter unavailable", map[string]any{"key": key, "error": err.Error()})
			c.Next()
			return
		}
		if !allowed {
			observability.RateLimitExceeded.Inc()
			utils.JSONError(c, http.StatusTooManyRequests, errors.New("rate limit exceeded"), "too many bids, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

// TokenValidator checks admin bearer tokens
type TokenValidator interface {
	Validate(token string) (*adminauth.Claims, error)
}

// AdminAuthMiddleware rejects requests without a valid admin bearer token
func AdminAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			utils.JSONError(c, http.StatusUnauthorized, errors.New("missing bearer token"), "unauthorized")
			c.Abort()
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, err, "unauthorized")
			utils.Warn("admin token rejected", map[string]any{"path": c.Request.URL.Path, "error": err.Error()})
			c.Abort()
			return
		}

		c.Set(handler.AdminSubjectKey, claims.Subject)
		c.Next()
	}
}
