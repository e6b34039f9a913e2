package rest

import (
	"net/http"
	"time"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/goal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GoalHandler serves viewing goals.
type GoalHandler struct {
	svc    *goal.Service
	logger *zap.Logger
}

func NewGoalHandler(svc *goal.Service, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{svc: svc, logger: logger}
}

// Board handles GET /api/goals.
func (h *GoalHandler) Board(c *gin.Context) {
	b, err := h.svc.Board(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Create handles POST /api/goals. The deadline is an optional RFC 3339 time.
func (h *GoalHandler) Create(c *gin.Context) {
	var req struct {
		Description string     `json:"description" binding:"required"`
		Deadline    *time.Time `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := h.svc.Create(c.Request.Context(), mw.GetUserID(c), req.Description, req.Deadline)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"goal": g})
}

// Toggle handles POST /api/goals/:id/toggle.
func (h *GoalHandler) Toggle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	g, err := h.svc.Toggle(c.Request.Context(), id, mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": g})
}

// Delete handles DELETE /api/goals/:id.
func (h *GoalHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, mw.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
