package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/friendship"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FriendHandler exposes the friendship state machine.
type FriendHandler struct {
	svc    *friendship.Service
	logger *zap.Logger
}

func NewFriendHandler(svc *friendship.Service, logger *zap.Logger) *FriendHandler {
	return &FriendHandler{svc: svc, logger: logger}
}

// SendRequest handles POST /api/friends/requests.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rel, err := h.svc.Request(c.Request.Context(), mw.GetUserID(c), req.UserID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"relationship": rel})
}

// Respond handles POST /api/friends/requests/:id/respond.
func (h *FriendHandler) Respond(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rel, err := h.svc.Respond(c.Request.Context(), id, mw.GetUserID(c), *req.Accept)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relationship": rel})
}

// Remove handles DELETE /api/friends/:id where id is the relationship id.
func (h *FriendHandler) Remove(c *gin.Context) {
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

// List handles GET /api/friends.
func (h *FriendHandler) List(c *gin.Context) {
	friends, err := h.svc.ListFriends(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// Pending handles GET /api/friends/pending.
func (h *FriendHandler) Pending(c *gin.Context) {
	p, err := h.svc.ListPending(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Search handles GET /api/friends/search?q=.
func (h *FriendHandler) Search(c *gin.Context) {
	users, err := h.svc.SearchCandidates(c.Request.Context(), mw.GetUserID(c), c.Query("q"), min(queryInt(c, "limit", 0), maxPage))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
