// Package sse pushes the caller's notification and message changes to the
// browser as server-sent events.
package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cinecircle/server/changefeed"
	mw "github.com/cinecircle/server/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultKeepAlive = 30 * time.Second

// Handler handles the SSE endpoint.
type Handler struct {
	feed      *changefeed.Feed
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler. keepAlive <= 0 uses 30s.
func NewHandler(feed *changefeed.Feed, keepAlive time.Duration, logger *zap.Logger) *Handler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &Handler{feed: feed, keepAlive: keepAlive, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>. It must run behind middleware.Auth.
// Only events whose target is the caller are forwarded; the SSE event name
// is the change kind.
func (h *Handler) ServeSSE(c *gin.Context) {
	userID := mw.GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	ctx := c.Request.Context()
	events, unsub, err := h.feed.Subscribe(ctx, changefeed.KindNotification, changefeed.KindMessage, changefeed.KindGroup)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.TargetID != userID || ev.Op != changefeed.OpCreated {
				continue
			}
			payload, err := changefeed.Encode(ev)
			if err != nil {
				h.logger.Warn("sse encode failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\nid: %d\ndata: %s\n\n", ev.Kind, ev.ID, payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-ctx.Done():
			return
		}
	}
}
