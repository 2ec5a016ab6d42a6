package db

import (
	"path/filepath"
	"testing"

	"perfect_vault/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		driver string
	}{
		{name: "sqlite relative", url: "sqlite:///users.db", driver: "sqlite"},
		{name: "sqlite absolute", url: "sqlite:////var/lib/vault/users.db", driver: "sqlite"},
		{name: "postgres", url: "postgres://vault:pw@localhost:5432/vault", driver: "postgres"},
		{name: "postgresql", url: "postgresql://vault@localhost/vault", driver: "postgres"},
		{name: "mysql", url: "mysql://vault:pw@tcp(localhost:3306)/vault?parseTime=true", driver: "mysql"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Dialector(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.driver, d.Name())
		})
	}
}

func TestDialectorRejectsUnknown(t *testing.T) {
	for _, url := range []string{"", "sqlite:///", "redis://localhost:6379", "users.db"} {
		_, err := Dialector(url)
		assert.Error(t, err, "url %q", url)
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	gdb, err := Open("sqlite:///" + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(gdb))
	assert.True(t, gdb.Migrator().HasTable(&domain.User{}))
	assert.True(t, gdb.Migrator().HasTable(&domain.Transaction{}))

	user := domain.User{Email: "alice@example.com", Name: "Alice", Password: "hash", Role: domain.RoleUser}
	require.NoError(t, gdb.Create(&user).Error)

	orphan := domain.Transaction{UserID: user.ID + 100, Type: domain.TxDeposit, Amount: 1}
	assert.Error(t, gdb.Create(&orphan).Error, "foreign key must reject unknown user")
}
