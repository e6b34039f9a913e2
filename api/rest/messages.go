package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/message"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler serves direct messages.
type MessageHandler struct {
	svc    *message.Service
	logger *zap.Logger
}

func NewMessageHandler(svc *message.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

// Send handles POST /api/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		ReceiverID int64  `json:"receiver_id" binding:"required"`
		Body       string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), mw.GetUserID(c), req.ReceiverID, req.Body)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Conversation handles GET /api/messages/:userId?limit=.
func (h *MessageHandler) Conversation(c *gin.Context) {
	other, ok := pathID(c, "userId")
	if !ok {
		return
	}
	msgs, err := h.svc.Conversation(c.Request.Context(), mw.GetUserID(c), other, queryInt(c, "limit", 0))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Unread handles GET /api/messages/unread.
func (h *MessageHandler) Unread(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Conversations handles GET /api/messages/conversations.
func (h *MessageHandler) Conversations(c *gin.Context) {
	convs, err := h.svc.Conversations(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
