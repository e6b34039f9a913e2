package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/notify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	inbox  *notify.Inbox
	logger *zap.Logger
}

func NewNotificationHandler(inbox *notify.Inbox, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, logger: logger}
}

// List handles GET /api/notifications?limit=.
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.inbox.List(c.Request.Context(), mw.GetUserID(c), queryInt(c, "limit", notify.MaxListSize))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// Unread handles GET /api/notifications/unread.
func (h *NotificationHandler) Unread(c *gin.Context) {
	n, err := h.inbox.UnreadCount(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkAllRead handles POST /api/notifications/read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.inbox.MarkAllRead(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// Delete handles DELETE /api/notifications/:id.
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.inbox.Delete(c.Request.Context(), id, mw.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Clear handles DELETE /api/notifications.
func (h *NotificationHandler) Clear(c *gin.Context) {
	n, err := h.inbox.Clear(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
