package api

import (
	"net/http" // HTTP status codes

	"perfect_vault/internal/export"     // CSV rendering
	"perfect_vault/internal/ledger"     // Ledger reads
	"perfect_vault/internal/middleware" // Session context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ExportTransactionsHandler streams the session user's history as a CSV download
func ExportTransactionsHandler(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c) // Set by RequireSession
		txs, err := l.History(c.Request.Context(), userID)
		if err != nil {
			internalError(c, "Failed to load transactions", userID, err)
			return
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", "attachment; filename="+export.Filename)
		c.Status(http.StatusOK)
		// Headers are already sent, a failure here can only be logged
		if err := export.WriteCSV(c.Writer, txs); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Export failed")
		}
	}
}
