package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mediavault/api/internal/config"
	"mediavault/api/internal/security"
)

const identityKey = "identity"

// Auth is the bearer guard. It is stateless: verification runs against the
// access secret only, so refresh tokens never pass, and downstream handlers
// receive a trusted identity without doing any verification of their own.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		claims, err := security.ParseToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(identityKey, *claims)
		c.Next()
	}
}

// Identity returns the claims the guard attached, if any.
func Identity(c *gin.Context) (security.TokenClaims, bool) {
	val, exists := c.Get(identityKey)
	if !exists {
		return security.TokenClaims{}, false
	}
	claims, ok := val.(security.TokenClaims)
	return claims, ok
}
