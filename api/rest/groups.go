package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/group"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GroupHandler serves friend groups.
type GroupHandler struct {
	svc    *group.Service
	logger *zap.Logger
}

func NewGroupHandler(svc *group.Service, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{svc: svc, logger: logger}
}

// List handles GET /api/groups.
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.svc.List(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Create handles POST /api/groups.
func (h *GroupHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := h.svc.Create(c.Request.Context(), mw.GetUserID(c), req.Name, req.Description)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": g})
}

// Get handles GET /api/groups/:id.
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id, mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": d})
}

// Leave handles POST /api/groups/:id/leave.
func (h *GroupHandler) Leave(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Leave(c.Request.Context(), id, mw.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// Recommendations handles GET /api/groups/:id/recommendations.
func (h *GroupHandler) Recommendations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recs, err := h.svc.Recommendations(c.Request.Context(), id, mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// Recommend handles POST /api/groups/:id/recommendations.
func (h *GroupHandler) Recommend(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in group.RecommendationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.svc.Recommend(c.Request.Context(), id, mw.GetUserID(c), in)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recommendation": rec})
}

// Messages handles GET /api/groups/:id/messages?limit=.
func (h *GroupHandler) Messages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.svc.Messages(c.Request.Context(), id, mw.GetUserID(c), queryInt(c, "limit", 0))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Post handles POST /api/groups/:id/messages.
func (h *GroupHandler) Post(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.svc.Post(c.Request.Context(), id, mw.GetUserID(c), req.Body)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Invitable handles GET /api/groups/:id/invitable.
func (h *GroupHandler) Invitable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	friends, err := h.svc.Invitable(c.Request.Context(), id, mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// Invite handles POST /api/groups/:id/members.
func (h *GroupHandler) Invite(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.Invite(c.Request.Context(), id, mw.GetUserID(c), req.UserID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": m})
}
