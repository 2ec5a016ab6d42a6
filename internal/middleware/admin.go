package middleware

import (
	"context"                       // Context for user lookups
	"net/http"                      // HTTP status codes
	"perfect_vault/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserGetter loads a user by id
type UserGetter interface {
	Get(ctx context.Context, id uint) (*domain.User, error)
}

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := UserID(c) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, send the browser to the login page
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		user, err := users.Get(c.Request.Context(), userID) // Fetch user from database
		if err != nil || !user.IsAdmin() {
			// If user not found, any error, or not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
