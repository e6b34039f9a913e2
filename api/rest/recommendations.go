package rest

import (
	"net/http"

	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social/content"
	"github.com/cinecircle/server/social/engagement"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPage = content.MaxPageSize

// Recommendation is a content item as a viewer sees it.
type Recommendation struct {
	model.ContentItem
	Owner         model.Profile `json:"owner"`
	LikeCount     int64         `json:"like_count"`
	CommentCount  int64         `json:"comment_count"`
	LikedByViewer bool          `json:"liked_by_viewer"`
}

// ContentHandler serves recommendations with their engagement.
type ContentHandler struct {
	content *content.Service
	eng     *engagement.Service
	logger  *zap.Logger
}

func NewContentHandler(cs *content.Service, eng *engagement.Service, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{content: cs, eng: eng, logger: logger}
}

// Create handles POST /api/recommendations.
func (h *ContentHandler) Create(c *gin.Context) {
	var in content.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.content.Create(c.Request.Context(), mw.GetUserID(c), in)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recommendation": item})
}

// List handles GET /api/recommendations?limit=&offset=&owner=.
func (h *ContentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		items []model.ContentItem
		err   error
	)
	if owner := int64(queryInt(c, "owner", 0)); owner > 0 {
		items, err = h.content.ListByOwner(ctx, owner)
	} else {
		items, err = h.content.ListRecent(ctx, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	}
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	views, err := h.views(c, items)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": views})
}

// Search handles GET /api/recommendations/search?q=.
func (h *ContentHandler) Search(c *gin.Context) {
	items, err := h.content.Search(c.Request.Context(), c.Query("q"), content.MaxSearch)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	views, err := h.views(c, items)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": views})
}

// Get handles GET /api/recommendations/:id.
func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.content.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	views, err := h.views(c, []model.ContentItem{*item})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": views[0]})
}

// Delete handles DELETE /api/recommendations/:id.
func (h *ContentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.content.Delete(c.Request.Context(), id, mw.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	h.eng.Invalidate(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ToggleLike handles POST /api/recommendations/:id/like.
func (h *ContentHandler) ToggleLike(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	counts, err := h.eng.ToggleLike(c.Request.Context(), mw.GetUserID(c), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Comments handles GET /api/recommendations/:id/comments.
func (h *ContentHandler) Comments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	comments, err := h.eng.Comments(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// AddComment handles POST /api/recommendations/:id/comments.
func (h *ContentHandler) AddComment(c *gin.Context) {
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
	cm, err := h.eng.AddComment(c.Request.Context(), mw.GetUserID(c), id, req.Body)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": cm})
}

// DeleteComment handles DELETE /api/comments/:id.
func (h *ContentHandler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.eng.DeleteComment(c.Request.Context(), id, mw.GetUserID(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *ContentHandler) views(c *gin.Context, items []model.ContentItem) ([]Recommendation, error) {
	ctx := c.Request.Context()
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := h.eng.Aggregate(ctx, ids, mw.GetUserID(c))
	if err != nil {
		return nil, err
	}
	owners, err := h.content.Owners(ctx, items)
	if err != nil {
		return nil, err
	}
	out := make([]Recommendation, len(items))
	for i := range items {
		n := counts[items[i].ID]
		out[i] = Recommendation{
			ContentItem:   items[i],
			Owner:         owners[items[i].OwnerID],
			LikeCount:     n.LikeCount,
			CommentCount:  n.CommentCount,
			LikedByViewer: n.LikedByViewer,
		}
	}
	return out, nil
}
