package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"time"     // Timestamps for logs

	"perfect_vault/internal/account"    // Credential store
	"perfect_vault/internal/cache"      // View cache
	"perfect_vault/internal/ledger"     // Notifier interface
	"perfect_vault/internal/middleware" // Session context helpers
	"perfect_vault/internal/notify"     // Notification messages
	"perfect_vault/internal/session"    // Session manager

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RegisterForm is the registration form
type RegisterForm struct {
	Email    string `form:"email" binding:"required,email,max=120"` // Email must be a valid address
	Name     string `form:"name" binding:"required,max=100"`        // Name must be provided
	Details  string `form:"details"`                                // Optional free text
	Password string `form:"password" binding:"required,max=72"`     // Password must fit bcrypt's limit
}

// LoginForm is the login form
type LoginForm struct {
	Email    string `form:"email" binding:"required"`    // Email must be provided
	Password string `form:"password" binding:"required"` // Password must be provided
}

// IndexHandler renders the landing page
func IndexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", page{Title: "Home", LoggedIn: hasSessionCookie(c)})
	}
}

// RegisterPageHandler renders the registration form
func RegisterPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "register.html", page{Title: "Register"})
	}
}

// RegisterHandler creates the user, queues the welcome email and sends the browser to the login page
func RegisterHandler(accounts *account.Store, notifier ledger.Notifier, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form RegisterForm
		if err := c.ShouldBind(&form); err != nil {
			// If binding fails, re-render the form
			c.HTML(http.StatusBadRequest, "register.html", page{
				Title: "Register", Error: "Please provide a valid email, a name and a password.",
				Email: form.Email, Name: form.Name, Details: form.Details,
			})
			return
		}
		user, err := accounts.Register(c.Request.Context(), account.RegisterInput{
			Email:    form.Email,
			Name:     form.Name,
			Details:  form.Details,
			Password: form.Password,
		})
		if errors.Is(err, account.ErrEmailTaken) {
			c.HTML(http.StatusConflict, "register.html", page{
				Title: "Register", Error: "This email is already registered.",
				Name: form.Name, Details: form.Details,
			})
			return
		}
		if errors.Is(err, account.ErrPasswordTooLong) {
			c.HTML(http.StatusBadRequest, "register.html", page{
				Title: "Register", Error: "Password must be at most 72 bytes.",
				Email: form.Email, Name: form.Name, Details: form.Details,
			})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"email": form.Email,
				"error": err.Error(),
			}).Error("Registration failed")
			c.HTML(http.StatusInternalServerError, "register.html", page{Title: "Register", Error: "Registration failed, please try again."})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"role":      user.Role,
			"timestamp": time.Now().Format(time.RFC3339),
		}).Info("User registered")
		if notifier != nil {
			notifier.Notify(notify.Welcome(user.Email, user.Name)) // Best effort, never blocks
		}
		_ = cc.Invalidate(c.Request.Context(), cache.AdminUsersKey) // Invalidate admin listing
		c.Redirect(http.StatusFound, "/login")
	}
}

// LoginPageHandler renders the login form
func LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "login.html", page{Title: "Log in"})
	}
}

// LoginHandler checks credentials and starts a session
func LoginHandler(accounts *account.Store, sessions *session.Manager, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form LoginForm
		if err := c.ShouldBind(&form); err != nil {
			c.HTML(http.StatusBadRequest, "login.html", page{Title: "Log in", Error: "Email and password are required.", Email: form.Email})
			return
		}
		user, err := accounts.Authenticate(c.Request.Context(), form.Email, form.Password)
		if errors.Is(err, account.ErrInvalidCredentials) {
			c.HTML(http.StatusUnauthorized, "login.html", page{Title: "Log in", Error: "Invalid credentials.", Email: form.Email})
			return
		}
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Login failed")
			c.HTML(http.StatusInternalServerError, "login.html", page{Title: "Log in", Error: "Login failed, please try again."})
			return
		}
		token, err := sessions.Issue(c.Request.Context(), user.ID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
				"error":   err.Error(),
			}).Error("Failed to start session")
			c.HTML(http.StatusInternalServerError, "login.html", page{Title: "Log in", Error: "Login failed, please try again."})
			return
		}
		setSessionCookie(c, token, int(sessions.TTL().Seconds()), secure)
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// LogoutHandler revokes the session and clears the cookie
func LogoutHandler(sessions *session.Manager, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(session.CookieName); err == nil && token != "" {
			if err := sessions.Revoke(c.Request.Context(), token); err != nil {
				logrus.WithField("error", err.Error()).Warn("Failed to revoke session")
			}
		}
		setSessionCookie(c, "", -1, secure) // Delete cookie
		c.Redirect(http.StatusFound, "/")
	}
}

func setSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, maxAge, "/", "", secure, true)
}

func hasSessionCookie(c *gin.Context) bool {
	if _, ok := middleware.UserID(c); ok {
		return true
	}
	token, err := c.Cookie(session.CookieName)
	return err == nil && token != ""
}
