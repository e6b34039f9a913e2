package rest

import (
	"fmt"
	"net/http"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/cinecircle/server/social/ranking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RankingHandler serves the leaderboards and the weekly pick.
type RankingHandler struct {
	svc    *ranking.Service
	logger *zap.Logger
}

func NewRankingHandler(svc *ranking.Service, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{svc: svc, logger: logger}
}

// Top handles GET /api/rankings?period=week|month|all&type=all|movie|series.
func (h *RankingHandler) Top(c *gin.Context) {
	w, err := ranking.ParseWindow(c.Query("period"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	mediaType, err := parseMediaFilter(c.Query("type"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	entries, err := h.svc.Top(c.Request.Context(), w, mediaType)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": w, "type": c.DefaultQuery("type", "all"), "ranking": entries})
}

// WeeklyPick handles GET /api/rankings/weekly-pick. The pick is null while
// no content exists.
func (h *RankingHandler) WeeklyPick(c *gin.Context) {
	pick, err := h.svc.WeeklyPick(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pick": pick})
}

// parseMediaFilter maps "", "all", "movie" and "series"; empty result means
// no filter.
func parseMediaFilter(s string) (model.MediaType, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	m := model.MediaType(s)
	if !m.Valid() {
		return "", fmt.Errorf("type %q: %w", s, social.ErrInvalidInput)
	}
	return m, nil
}
