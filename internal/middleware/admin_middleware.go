package middleware

import (
	"net/http"
	"strings"

	"github.com/01moynul/modelshop/internal/auth"
	"github.com/gin-gonic/gin"
)

// AdminMiddleware accepts HTTP Basic credentials matching the configured
// admin secrets, or a bearer token issued to the admin. It runs on its own,
// not after AuthMiddleware.
func AdminMiddleware(creds auth.AdminCredentials, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Basic credentials ---
		if id, password, ok := c.Request.BasicAuth(); ok {
			if !creds.Check(id, password) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials"})
				return
			}
			c.Set("adminID", id)
			c.Next()
			return
		}

		// 2. --- Admin bearer token ---
		if tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && issuer != nil {
			claims, err := issuer.ValidateToken(tokenString)
			if err == nil && claims.IsAdmin {
				c.Set(claimsKey, claims)
				c.Set("adminID", claims.UserID)
				c.Next()
				return
			}
		}

		c.Header("WWW-Authenticate", `Basic realm="admin"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin authentication required"})
	}
}
