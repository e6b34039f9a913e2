package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProfileHandler lets the caller read and edit their own profile.
type ProfileHandler struct {
	svc    *profile.Service
	logger *zap.Logger
}

func NewProfileHandler(svc *profile.Service, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": u})
}

// Save handles PUT /api/profile.
// Creates the caller's row on first save, keyed by the token subject.
func (h *ProfileHandler) Save(c *gin.Context) {
	var in profile.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.svc.Upsert(c.Request.Context(), mw.GetUserID(c), in)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": u})
}
