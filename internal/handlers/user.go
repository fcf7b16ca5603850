package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediavault/api/internal/middleware"
)

func (h HandlerSet) Me(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{
			ID:    identity.UserID,
			Email: identity.Email,
			Role:  identity.Role,
		},
	})
}
