package rest

import (
	"net/http"

	"github.com/cinecircle/server/social/badge"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BadgeHandler serves the badge catalog and per-user evaluation.
type BadgeHandler struct {
	svc    *badge.Service
	logger *zap.Logger
}

func NewBadgeHandler(svc *badge.Service, logger *zap.Logger) *BadgeHandler {
	return &BadgeHandler{svc: svc, logger: logger}
}

// Catalog handles GET /api/badges.
func (h *BadgeHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"badges": badge.Catalog()})
}

// ForUser handles GET /api/users/:id/badges.
func (h *BadgeHandler) ForUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sum, err := h.svc.ForUser(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Grant handles PUT /api/admin/users/:id/badges. The body replaces the
// user's granted badge set.
func (h *BadgeHandler) Grant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Badges []string `json:"badges"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	granted, err := h.svc.GrantBadges(c.Request.Context(), id, req.Badges)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	h.logger.Info("badges granted", zap.Int64("user_id", id), zap.Strings("badges", granted))
	c.JSON(http.StatusOK, gin.H{"user_id": id, "granted": granted})
}
