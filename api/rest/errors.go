package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cinecircle/server/catalog"
	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/social"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, social.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, social.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, social.ErrDuplicateRequest),
		errors.Is(err, social.ErrDuplicateLike),
		errors.Is(err, social.ErrDuplicate),
		errors.Is(err, social.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, social.ErrSelfReference),
		errors.Is(err, social.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Internal errors are logged and their
// text is not exposed.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "internal error"})
			return
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// pathID parses a positive int64 path parameter, answering 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}
