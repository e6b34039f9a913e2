package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/watchlist"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WatchlistHandler serves the caller's watch list.
type WatchlistHandler struct {
	svc    *watchlist.Service
	logger *zap.Logger
}

func NewWatchlistHandler(svc *watchlist.Service, logger *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{svc: svc, logger: logger}
}

// List handles GET /api/watchlist.
func (h *WatchlistHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}

// Add handles POST /api/watchlist.
func (h *WatchlistHandler) Add(c *gin.Context) {
	var in watchlist.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.svc.Add(c.Request.Context(), mw.GetUserID(c), in)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// ToggleWatched handles POST /api/watchlist/:id/watched.
func (h *WatchlistHandler) ToggleWatched(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.ToggleWatched(c.Request.Context(), id, mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Remove handles DELETE /api/watchlist/:id.
func (h *WatchlistHandler) Remove(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), id, mw.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}
