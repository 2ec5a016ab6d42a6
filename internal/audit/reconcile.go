// Package audit checks that stored balances agree with the transaction log.
package audit

import (
	"context"
	"fmt"
	"math"

	"perfect_vault/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const tolerance = 1e-6

// Drift describes a user whose stored totals disagree with the log
type Drift struct {
	UserID              uint
	Email               string
	Balance             float64
	ExpectedBalance     float64
	Investments         float64
	ExpectedInvestments float64
}

type totals struct {
	UserID   uint
	Net      float64
	Invested float64
}

// Reconciler compares users' balance and investments with their transactions
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a reconciler over db
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Run returns every user whose stored totals drifted from the log
func (r *Reconciler) Run(ctx context.Context) ([]Drift, error) {
	var sums []totals
	err := r.db.WithContext(ctx).Model(&domain.Transaction{}).
		Select("user_id, "+
			"SUM(CASE WHEN type = ? THEN amount ELSE -amount END) AS net, "+
			"SUM(CASE WHEN type = ? THEN amount ELSE 0 END) AS invested",
			domain.TxDeposit, domain.TxInvest).
		Group("user_id").
		Scan(&sums).Error
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	byUser := make(map[uint]totals, len(sums))
	for _, s := range sums {
		byUser[s.UserID] = s
	}

	var users []domain.User
	if err := r.db.WithContext(ctx).Select("id", "email", "balance", "investments").Order("id asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var drifts []Drift
	for _, u := range users {
		want := byUser[u.ID] // Users without transactions expect zero totals
		if math.Abs(u.Balance-want.Net) <= tolerance && math.Abs(u.Investments-want.Invested) <= tolerance {
			continue
		}
		drifts = append(drifts, Drift{
			UserID:              u.ID,
			Email:               u.Email,
			Balance:             u.Balance,
			ExpectedBalance:     want.Net,
			Investments:         u.Investments,
			ExpectedInvestments: want.Invested,
		})
	}
	return drifts, nil
}

// Schedule registers the reconciler on c under schedule; drifts are logged as warnings
func Schedule(c *cron.Cron, schedule string, r *Reconciler) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		drifts, err := r.Run(context.Background())
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Ledger reconciliation failed")
			return
		}
		for _, d := range drifts {
			logrus.WithFields(logrus.Fields{
				"user_id":              d.UserID,
				"email":                d.Email,
				"balance":              d.Balance,
				"expected_balance":     d.ExpectedBalance,
				"investments":          d.Investments,
				"expected_investments": d.ExpectedInvestments,
			}).Warn("Ledger drift")
		}
		logrus.WithField("drifts", len(drifts)).Info("Ledger reconciliation completed")
	})
}
