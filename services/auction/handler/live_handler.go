package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"live-auction/internal/broadcast"
	"live-auction/internal/models"
	"live-auction/services/auction/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

// Feed opens live subscriptions
type Feed interface {
	Subscribe(ctx context.Context, auctionID string) (*broadcast.Subscription, error)
}

// ItemLookup resolves an item for a viewer, hiding it from non-owners
type ItemLookup interface {
	GetAuction(ctx context.Context, auctionID, viewerID string) (models.Auction, error)
}

type LiveHandler struct {
	feed  Feed
	items ItemLookup
}

func NewLiveHandler(feed Feed, items ItemLookup) *LiveHandler {
	return &LiveHandler{feed: feed, items: items}
}

// StreamHandler handles GET /realtime?item=<id> as a Server-Sent Events
// stream. Without an item filter every auction's events are sent. Events of
// hidden items only reach their owner.
func (h *LiveHandler) StreamHandler(c *gin.Context) {
	itemID := c.Query("item")
	ctx := c.Request.Context()
	viewer, _ := helpers.CurrentBidder(c)

	if itemID != "" {
		if _, err := h.items.GetAuction(ctx, itemID, viewer.UserID); err != nil {
			helpers.RespondError(c, "StreamHandler", err, map[string]any{"item_id": itemID})
			return
		}
	}

	sub, err := h.feed.Subscribe(ctx, itemID)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, err, "live updates unavailable")
		utils.Warn("StreamHandler: subscribe failed", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err := writeData(c.Writer, gin.H{"type": "connected"}); err != nil {
		return
	}
	c.Writer.Flush()

	utils.Debug("StreamHandler: subscriber connected", map[string]any{"item_id": itemID})
	defer utils.Debug("StreamHandler: subscriber disconnected", map[string]any{"item_id": itemID})

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			var err error
			switch {
			case msg.Heartbeat:
				_, err = io.WriteString(c.Writer, ": heartbeat\n\n")
			case !msg.Event.VisibleTo(viewer.UserID):
				continue
			default:
				err = writeData(c.Writer, msg.Event)
			}
			if err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeData(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
