package ledger

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"perfect_vault/internal/db"
	"perfect_vault/internal/domain"
	"perfect_vault/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) subjects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.msgs {
		out = append(out, m.Subject)
	}
	return out
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open("sqlite:///" + filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, email string, balance float64) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, Name: "Test", Password: "hash", Role: domain.RoleUser, Balance: balance}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

func newTestLedger(t *testing.T) (*Service, *gorm.DB, *recordingNotifier) {
	t.Helper()
	gdb := openTestDB(t)
	n := &recordingNotifier{}
	return NewService(gdb, n), gdb, n
}

func countTransactions(t *testing.T, gdb *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "100", want: 100, ok: true},
		{in: " 12.50 ", want: 12.5, ok: true},
		{in: "0.01", want: 0.01, ok: true},
		{in: "1e3", want: 1000, ok: true},
		{in: "", ok: false},
		{in: "abc", ok: false},
		{in: "NaN", ok: false},
		{in: "0", ok: false},
		{in: "-5", ok: false},
		{in: "10,5", ok: false},
		{in: "1e400", ok: false},
		{in: "1000000000001", ok: false},
		{in: "1000000000000", want: MaxAmount, ok: true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
	}
}

func TestDeposit(t *testing.T) {
	svc, gdb, n := newTestLedger(t)
	ctx := context.Background()
	user := createUser(t, gdb, "alice@example.com", 0)

	record, err := svc.Deposit(ctx, user.ID, 100, "salary")
	require.NoError(t, err)
	assert.Equal(t, domain.TxDeposit, record.Type)
	assert.Equal(t, 100.0, record.Amount)
	assert.Equal(t, "salary", record.Description)

	account, err := svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, account.Balance)
	assert.Equal(t, int64(1), countTransactions(t, gdb, user.ID))
	assert.Equal(t, []string{"Deposit Received"}, n.subjects())
}

func TestWithdrawGuardedSubtract(t *testing.T) {
	svc, gdb, n := newTestLedger(t)
	ctx := context.Background()
	user := createUser(t, gdb, "bob@example.com", 100)

	_, err := svc.Withdraw(ctx, user.ID, 150, "too much")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	account, err := svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, account.Balance)
	assert.Equal(t, int64(0), countTransactions(t, gdb, user.ID))
	assert.Empty(t, n.subjects())

	record, err := svc.Withdraw(ctx, user.ID, 100, "everything")
	require.NoError(t, err)
	assert.Equal(t, domain.TxWithdraw, record.Type)

	account, err = svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, account.Balance)
	assert.Equal(t, int64(1), countTransactions(t, gdb, user.ID))
	assert.Equal(t, []string{"Withdrawal Made"}, n.subjects())
}

func TestInvestMovesBalanceToInvestments(t *testing.T) {
	svc, gdb, n := newTestLedger(t)
	ctx := context.Background()
	user := createUser(t, gdb, "carol@example.com", 80)

	_, err := svc.Invest(ctx, user.ID, 81)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	record, err := svc.Invest(ctx, user.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, domain.TxInvest, record.Type)
	assert.Equal(t, "Investment", record.Description)

	account, err := svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, account.Balance)
	assert.Equal(t, 30.0, account.Investments)
	assert.Equal(t, []string{"Investment Made"}, n.subjects())
}

func TestScenario(t *testing.T) {
	svc, gdb, _ := newTestLedger(t)
	ctx := context.Background()
	user := createUser(t, gdb, "alice@example.com", 0)

	steps := []struct {
		name        string
		run         func() error
		balance     float64
		investments float64
		count       int64
	}{
		{"deposit 100", func() error { _, err := svc.Deposit(ctx, user.ID, 100, ""); return err }, 100, 0, 1},
		{"withdraw 150 is a no-op", func() error { _, err := svc.Withdraw(ctx, user.ID, 150, ""); return err }, 100, 0, 1},
		{"withdraw 40", func() error { _, err := svc.Withdraw(ctx, user.ID, 40, ""); return err }, 60, 0, 2},
		{"invest 60", func() error { _, err := svc.Invest(ctx, user.ID, 60); return err }, 0, 60, 3},
	}
	for _, step := range steps {
		err := step.run()
		if err != nil && !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("%s: %v", step.name, err)
		}
		account, err := svc.Account(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, step.balance, account.Balance, step.name)
		assert.Equal(t, step.investments, account.Investments, step.name)
		assert.Equal(t, step.count, countTransactions(t, gdb, user.ID), step.name)
	}
}

// Two withdrawals racing for the same 50 must not overdraw: the check-and-set
// update lets exactly one of them through.
func TestConcurrentWithdrawDoesNotOverdraw(t *testing.T) {
	svc, gdb, _ := newTestLedger(t)
	ctx := context.Background()
	user := createUser(t, gdb, "race@example.com", 50)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Withdraw(ctx, user.ID, 50, "race")
		}(i)
	}
	wg.Wait()

	var succeeded, skipped int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			skipped++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, skipped)

	account, err := svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, account.Balance)
	assert.Equal(t, int64(1), countTransactions(t, gdb, user.ID))
}

func TestRejectsInvalidInput(t *testing.T) {
	svc, gdb, n := newTestLedger(t)
	ctx := context.Background()
	user := createUser(t, gdb, "dave@example.com", 10)

	_, err := svc.Deposit(ctx, user.ID, -5, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Withdraw(ctx, user.ID, -5, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Invest(ctx, user.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Deposit(ctx, user.ID, math.Inf(1), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Deposit(ctx, user.ID, math.NaN(), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Deposit(ctx, user.ID, MaxAmount*2, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	long := make([]byte, MaxDescriptionLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.Deposit(ctx, user.ID, 1, string(long))
	assert.ErrorIs(t, err, ErrInvalidDescription)

	account, err := svc.Account(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, account.Balance)
	assert.Equal(t, int64(0), countTransactions(t, gdb, user.ID))
	assert.Empty(t, n.subjects())
}

func TestUnknownUser(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, 999, 10, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.Invest(ctx, 999, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.Account(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHistoryIsPerUserAndOrdered(t *testing.T) {
	svc, gdb, _ := newTestLedger(t)
	ctx := context.Background()
	alice := createUser(t, gdb, "alice@example.com", 0)
	bob := createUser(t, gdb, "bob@example.com", 0)

	_, err := svc.Deposit(ctx, alice.ID, 10, "first")
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, bob.ID, 99, "other user")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, alice.ID, 4, "second")
	require.NoError(t, err)
	_, err = svc.Invest(ctx, alice.ID, 6)
	require.NoError(t, err)

	history, err := svc.History(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Description)
	assert.Equal(t, "second", history[1].Description)
	assert.Equal(t, "Investment", history[2].Description)
	for _, tx := range history {
		assert.Equal(t, alice.ID, tx.UserID)
	}
}

func TestNilNotifier(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewService(gdb, nil)
	user := createUser(t, gdb, "quiet@example.com", 0)

	_, err := svc.Deposit(context.Background(), user.ID, 5, "")
	require.NoError(t, err)
}
