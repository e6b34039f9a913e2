package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newOriginRouter(allowed ...string) *gin.Engine {
	r := gin.New()
	r.Use(Origins(allowed))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func originRequest(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/x", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrigins(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantHeader string
	}{
		{"no origin header", []string{"https://a.example"}, http.MethodGet, "", http.StatusOK, ""},
		{"listed origin", []string{"https://a.example"}, http.MethodGet, "https://a.example", http.StatusOK, "https://a.example"},
		{"unlisted origin", []string{"https://a.example"}, http.MethodGet, "https://b.example", http.StatusForbidden, ""},
		{"empty list allows all", nil, http.MethodGet, "https://b.example", http.StatusOK, "https://b.example"},
		{"preflight", nil, http.MethodOptions, "https://a.example", http.StatusNoContent, "https://a.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := originRequest(newOriginRouter(tt.allowed...), tt.method, tt.origin)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantHeader, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestOrigins_PreflightHeaders(t *testing.T) {
	w := originRequest(newOriginRouter(), http.MethodOptions, "https://a.example")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
