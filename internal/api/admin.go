package api

import (
	"net/http" // HTTP status codes

	"perfect_vault/internal/account" // Credential store
	"perfect_vault/internal/cache"   // View cache
	"perfect_vault/internal/domain"  // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminHandler lists every user with their balance and investments
func AdminHandler(accounts *account.Store, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key, verr := cc.Versioned(ctx, cache.AdminUsersKey) // Generation before the read
		var users []domain.User
		found := false
		if verr == nil {
			found, _ = cc.Load(ctx, key, &users) // If cached data found, use it
		}
		if !found {
			var err error
			users, err = accounts.List(ctx)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
				return
			}
			if verr == nil {
				_ = cc.Store(ctx, key, users) // Cache the listing for future requests
			}
		}
		c.HTML(http.StatusOK, "admin.html", page{Title: "Admin", LoggedIn: true, Users: users})
	}
}
