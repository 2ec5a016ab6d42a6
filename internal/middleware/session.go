package middleware

import (
	"context"                        // Context for session lookups
	"errors"                         // Error inspection
	"net/http"                       // HTTP status codes
	"perfect_vault/internal/session" // Session manager

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// UserIDKey is the context key RequireSession stores the user id under
const UserIDKey = "userID"

// SessionResolver resolves a session token to its claims
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Claims, error)
}

// RequireSession lets the request through only with a live session cookie.
// Anything else redirects to the login page.
func RequireSession(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(session.CookieName) // Read session cookie
		if err != nil || token == "" {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		claims, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				// Session store unavailable, still treated as logged out
				logrus.WithField("error", err.Error()).Error("Session lookup failed")
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Next()                        // Proceed to the next handler
	}
}

// UserID returns the user id stored by RequireSession
func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
