package middleware

import (
	"net/http"
	"strings"

	"github.com/01moynul/modelshop/internal/auth"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AuthMiddleware lets a request through only with a valid bearer token.
// Any parse, signature or expiry failure is a 401.
func AuthMiddleware(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized. Authentication required."})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		claims, err := issuer.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Success ---
		c.Set(claimsKey, claims)
		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// GetUserFromContext returns the claims AuthMiddleware stored.
func GetUserFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
