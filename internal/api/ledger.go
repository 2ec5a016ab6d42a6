package api

import (
	"context"  // Context for ledger calls
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"perfect_vault/internal/cache"      // View cache
	"perfect_vault/internal/domain"     // Importing domain models
	"perfect_vault/internal/ledger"     // Ledger operations
	"perfect_vault/internal/middleware" // Session context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AmountForm is posted by the deposit, withdraw and invest forms
type AmountForm struct {
	Amount      string `form:"amount" binding:"required"` // Amount as typed by the user
	Description string `form:"description"`               // Optional, ignored by invest
}

// dashboardView is the cached content of the dashboard
type dashboardView struct {
	User         domain.User          `json:"user"`         // Balance snapshot
	Transactions []domain.Transaction `json:"transactions"` // Full history
}

// DashboardHandler renders balance, investments and history of the session user
func DashboardHandler(l *ledger.Service, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c) // Set by RequireSession
		ctx := c.Request.Context()
		// Generation is taken before the database read, so a view that races a
		// mutation lands under an invalidated key
		key, verr := cc.Versioned(ctx, cache.DashboardKey(userID))

		var view dashboardView
		found := false
		if verr == nil {
			found, _ = cc.Load(ctx, key, &view) // Try to get from cache
		}
		if !found {
			user, err := l.Account(ctx, userID)
			if errors.Is(err, ledger.ErrUserNotFound) {
				c.Redirect(http.StatusFound, "/logout") // Session outlived its user
				return
			}
			if err != nil {
				internalError(c, "Failed to load account", userID, err)
				return
			}
			txs, err := l.History(ctx, userID)
			if err != nil {
				internalError(c, "Failed to load transactions", userID, err)
				return
			}
			view = dashboardView{User: *user, Transactions: txs}
			if verr == nil {
				_ = cc.Store(ctx, key, view) // Cache the view
			}
		}
		c.HTML(http.StatusOK, "dashboard.html", page{
			Title:        "Dashboard",
			LoggedIn:     true,
			User:         &view.User,
			Transactions: view.Transactions,
		})
	}
}

// mutation applies one ledger operation for userID
type mutation func(ctx context.Context, userID uint, amount float64, description string) error

// DepositHandler adds the posted amount to the balance
func DepositHandler(l *ledger.Service, cc *cache.Cache) gin.HandlerFunc {
	return mutationHandler("deposit", cc, func(ctx context.Context, userID uint, amount float64, description string) error {
		_, err := l.Deposit(ctx, userID, amount, description)
		return err
	})
}

// WithdrawHandler subtracts the posted amount; an uncovered withdrawal is silently skipped
func WithdrawHandler(l *ledger.Service, cc *cache.Cache) gin.HandlerFunc {
	return mutationHandler("withdraw", cc, func(ctx context.Context, userID uint, amount float64, description string) error {
		_, err := l.Withdraw(ctx, userID, amount, description)
		return err
	})
}

// InvestHandler moves the posted amount to investments; an uncovered investment is silently skipped
func InvestHandler(l *ledger.Service, cc *cache.Cache) gin.HandlerFunc {
	return mutationHandler("invest", cc, func(ctx context.Context, userID uint, amount float64, _ string) error {
		_, err := l.Invest(ctx, userID, amount)
		return err
	})
}

func mutationHandler(name string, cc *cache.Cache, apply mutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c) // Set by RequireSession
		var form AmountForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		amount, err := ledger.ParseAmount(form.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		err = apply(c.Request.Context(), userID, amount, form.Description)
		switch {
		case err == nil:
			// Invalidate dashboard and admin listing
			_ = cc.Invalidate(c.Request.Context(), cache.DashboardKey(userID), cache.AdminUsersKey)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			// Not surfaced to the user, the dashboard shows the unchanged balance
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"amount":  amount,
				"type":    name,
			}).Info("Insufficient funds, operation skipped")
		case errors.Is(err, ledger.ErrInvalidDescription):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Description too long"})
			return
		case errors.Is(err, ledger.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		case errors.Is(err, ledger.ErrUserNotFound):
			c.Redirect(http.StatusFound, "/logout")
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": name + " failed"})
			return
		}
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

func internalError(c *gin.Context, msg string, userID uint, err error) {
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"error":   err.Error(),
	}).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
