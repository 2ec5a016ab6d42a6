// Package ledger owns every balance and investment mutation and the transaction
// log that records it. Each mutation and its record are written in one database
// transaction; notifications are handed off only after commit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"perfect_vault/internal/domain"
	"perfect_vault/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxDescriptionLen bounds the free-text description of a transaction
const MaxDescriptionLen = 200

// MaxAmount is the largest amount a single operation accepts. It keeps balances
// and the sums over the transaction log finite.
const MaxAmount = 1e12

var maxAmount = decimal.NewFromFloat(MaxAmount)

var (
	// ErrInsufficientFunds is returned by guarded operations when balance < amount.
	// Nothing was written when it is returned.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount rejects non-numeric and non-positive amounts
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDescription rejects descriptions longer than MaxDescriptionLen
	ErrInvalidDescription = errors.New("description too long")
	// ErrUserNotFound is returned when the user id does not exist
	ErrUserNotFound = errors.New("user not found")
)

// Notifier receives messages once a mutation has committed
type Notifier interface {
	Notify(msg notify.Message)
}

// Service is the ledger
type Service struct {
	db       *gorm.DB
	notifier Notifier
}

// NewService creates a ledger over db. notifier may be nil.
func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// ParseAmount parses a user-supplied amount. Only strictly positive numbers up
// to MaxAmount are accepted.
func ParseAmount(text string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, maxAmount.String())
	}
	return d.InexactFloat64(), nil
}

func validate(amount float64, description string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || !(amount > 0) {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, maxAmount.String())
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return ErrInvalidDescription
	}
	return nil
}

// Deposit adds amount to the balance and records a Deposit transaction
func (s *Service) Deposit(ctx context.Context, userID uint, amount float64, description string) (*domain.Transaction, error) {
	if err := validate(amount, description); err != nil {
		return nil, err
	}
	var user domain.User
	record := domain.Transaction{UserID: userID, Type: domain.TxDeposit, Amount: amount, Description: description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &user); err != nil {
			return err
		}
		// Increment balance
		if err := tx.Model(&domain.User{}).Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, s.failed(err, userID, amount, domain.TxDeposit)
	}
	s.committed(&record)
	s.notify(notify.DepositReceived(user.Email, amount))
	return &record, nil
}

// Withdraw subtracts amount from the balance if the balance covers it.
// Returns ErrInsufficientFunds and writes nothing otherwise.
func (s *Service) Withdraw(ctx context.Context, userID uint, amount float64, description string) (*domain.Transaction, error) {
	if err := validate(amount, description); err != nil {
		return nil, err
	}
	var user domain.User
	record := domain.Transaction{UserID: userID, Type: domain.TxWithdraw, Amount: amount, Description: description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &user); err != nil {
			return err
		}
		if err := guardedSubtract(tx, userID, amount, map[string]any{
			"balance": gorm.Expr("balance - ?", amount),
		}); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, s.failed(err, userID, amount, domain.TxWithdraw)
	}
	s.committed(&record)
	s.notify(notify.WithdrawalMade(user.Email, amount))
	return &record, nil
}

// Invest moves amount from the balance to investments if the balance covers it.
// Returns ErrInsufficientFunds and writes nothing otherwise.
func (s *Service) Invest(ctx context.Context, userID uint, amount float64) (*domain.Transaction, error) {
	if err := validate(amount, ""); err != nil {
		return nil, err
	}
	var user domain.User
	record := domain.Transaction{UserID: userID, Type: domain.TxInvest, Amount: amount, Description: domain.InvestDescription}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, userID, &user); err != nil {
			return err
		}
		if err := guardedSubtract(tx, userID, amount, map[string]any{
			"balance":     gorm.Expr("balance - ?", amount),
			"investments": gorm.Expr("investments + ?", amount),
		}); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, s.failed(err, userID, amount, domain.TxInvest)
	}
	s.committed(&record)
	s.notify(notify.InvestmentMade(user.Email, amount))
	return &record, nil
}

// Account returns the current balance snapshot of a user
func (s *Service) Account(ctx context.Context, userID uint) (*domain.User, error) {
	var user domain.User
	if err := loadUser(s.db.WithContext(ctx), userID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// History returns all transactions of a user in the order they were recorded
func (s *Service) History(ctx context.Context, userID uint) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return txs, nil
}

func loadUser(tx *gorm.DB, userID uint, user *domain.User) error {
	if err := tx.First(user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	return nil
}

// guardedSubtract applies updates only while balance >= amount. The check and the
// write are one statement so that concurrent callers cannot both pass the check.
func guardedSubtract(tx *gorm.DB, userID uint, amount float64, updates map[string]any) error {
	res := tx.Model(&domain.User{}).Where("id = ? AND balance >= ?", userID, amount).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *Service) failed(err error, userID uint, amount float64, kind string) error {
	if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrUserNotFound) {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"type":    kind,
		"error":   err.Error(),
	}).Error("Ledger mutation failed")
	return fmt.Errorf("%s: %w", strings.ToLower(kind), err)
}

func (s *Service) committed(record *domain.Transaction) {
	logrus.WithFields(logrus.Fields{
		"user_id":   record.UserID,
		"tx_id":     record.ID,
		"amount":    record.Amount,
		"type":      record.Type,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("Ledger transaction")
}

func (s *Service) notify(msg notify.Message) {
	if s.notifier != nil {
		s.notifier.Notify(msg)
	}
}
