package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/axellelanca/magiccode/internal/models"
)

const claimsKey = "auth.claims"

// Middleware rejects requests without a valid bearer token and stores the
// claims on the context.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing authorization header", "type": "error"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization header format", "type": "error"})
			return
		}

		claims, err := m.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token", "type": "error"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// AdminOnly must run after Middleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok || claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required", "type": "error"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Middleware.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// AccountID returns the id of the authenticated account, or 0.
func AccountID(c *gin.Context) uint {
	if claims, ok := ClaimsFrom(c); ok {
		return claims.UserID
	}
	return 0
}
