package rest

import (
	"net/http"

	"github.com/cinecircle/server/catalog"
	"github.com/cinecircle/server/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler proxies title searches to the external catalog.
type CatalogHandler struct {
	client *catalog.Client
	logger *zap.Logger
}

func NewCatalogHandler(client *catalog.Client, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{client: client, logger: logger}
}

// Search handles GET /api/catalog/search?q=&type=movie|series.
func (h *CatalogHandler) Search(c *gin.Context) {
	results, err := h.client.SearchByTitle(c.Request.Context(), c.Query("q"), model.MediaType(c.DefaultQuery("type", string(model.MediaMovie))))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Popular handles GET /api/catalog/popular?type=movie|series.
func (h *CatalogHandler) Popular(c *gin.Context) {
	results, err := h.client.Popular(c.Request.Context(), model.MediaType(c.DefaultQuery("type", string(model.MediaMovie))))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Details handles GET /api/catalog/:type/:externalId.
func (h *CatalogHandler) Details(c *gin.Context) {
	mediaType := model.MediaType(c.Param("type"))
	if !mediaType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
		return
	}
	d, err := h.client.Details(c.Request.Context(), c.Param("externalId"), mediaType)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
