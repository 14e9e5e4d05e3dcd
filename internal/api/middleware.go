package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"whatsapp-dashboard/internal/auth"
)

const (
	ctxUserID   = "user_id"
	ctxTenantID = "tenant_id"
)

// RequireAuth validates the bearer token and scopes the request to the
// session's tenant.
func RequireAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			// Browsers can't set headers on websocket upgrades; allow
			// the token as a query parameter there.
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing token"})
			return
		}

		session, err := svc.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		c.Set(ctxUserID, session.UserID)
		c.Set(ctxTenantID, session.TenantID)
		c.Next()
	}
}

// TenantID returns the tenant the request is scoped to.
func TenantID(c *gin.Context) string {
	return c.GetString(ctxTenantID)
}
