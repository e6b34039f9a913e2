package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const UserIDKey = "user_id"

// AdminKeyHeader carries the shared administrator key.
const AdminKeyHeader = "X-Admin-Key"

// Auth validates the Bearer JWT and stores the caller's user id. A "token"
// query parameter is accepted for clients that cannot set headers, such as
// EventSource.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, secret)
		if err != nil || claims.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) int64 {
	if v, exists := c.Get(UserIDKey); exists {
		return v.(int64)
	}
	return 0
}

// AdminAuth admits requests carrying the configured admin key. key may be
// the key itself or its bcrypt hash. When ips is non-empty the client
// address must also be listed. An empty key disables the admin surface
// entirely.
func AdminAuth(key string, ips []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		allowed[ip] = struct{}{}
	}
	match := func(got string) bool {
		return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
	}
	if _, err := bcrypt.Cost([]byte(key)); err == nil {
		match = func(got string) bool {
			return bcrypt.CompareHashAndPassword([]byte(key), []byte(got)) == nil
		}
	}
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[c.ClientIP()]; !ok {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
				return
			}
		}
		if !match(c.GetHeader(AdminKeyHeader)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}
