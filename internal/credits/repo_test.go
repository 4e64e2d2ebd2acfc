package credits

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
)

func setupCreditsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// Single connection so concurrent writers queue instead of hitting
	// SQLITE_BUSY; Postgres serializes on the row in production.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	accounts := `
CREATE TABLE IF NOT EXISTS credit_accounts (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL UNIQUE,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  free_credit_used INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS credit_transactions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  reason TEXT NOT NULL,
  initiated_by TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(transactions).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM credit_transactions")
		db.Exec("DELETE FROM credit_accounts")
	})
	return db
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.EnsureAccount(ctx, tenantID))
	require.NoError(t, repo.EnsureAccount(ctx, tenantID))

	var count int64
	require.NoError(t, db.Model(&models.CreditAccount{}).Where("tenant_id = ?", tenantID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	account, err := repo.GetAccount(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.BalanceCents)
	assert.False(t, account.FreeCreditUsed)
}

func TestApplyDeltaIsRelative(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.EnsureAccount(ctx, tenantID))
	require.NoError(t, repo.ApplyDelta(ctx, tenantID, 1000))
	require.NoError(t, repo.ApplyDelta(ctx, tenantID, -120))
	require.NoError(t, repo.ApplyDelta(ctx, tenantID, 2500))

	account, err := repo.GetAccount(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(3380), account.BalanceCents)
}

func TestApplyDeltaAllowsNegativeBalance(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.EnsureAccount(ctx, tenantID))
	require.NoError(t, repo.ApplyDelta(ctx, tenantID, -250))

	account, err := repo.GetAccount(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(-250), account.BalanceCents)
}

func TestConcurrentApplyDeltaLosesNoUpdates(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	require.NoError(t, repo.EnsureAccount(ctx, tenantID))

	const workers = 20
	const delta = int64(7)
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.ApplyDelta(ctx, tenantID, delta)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	account, err := repo.GetAccount(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, delta*workers, account.BalanceCents)
}

func TestMarkFreeCreditUsedWinsOnce(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	require.NoError(t, repo.EnsureAccount(ctx, tenantID))

	first, err := repo.MarkFreeCreditUsed(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkFreeCreditUsed(ctx, tenantID)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestListTransactionsOrdersAscending(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	other := uuid.New()

	for _, amount := range []int64{1000, -120, 2500} {
		require.NoError(t, repo.CreateTransaction(ctx, &models.CreditTransaction{
			TenantID:    tenantID,
			AmountCents: amount,
			Reason:      "test entry",
		}))
	}
	require.NoError(t, repo.CreateTransaction(ctx, &models.CreditTransaction{
		TenantID:    other,
		AmountCents: 42,
		Reason:      "other tenant",
	}))

	txns, err := repo.ListTransactions(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, int64(1000), txns[0].AmountCents)
	assert.Equal(t, int64(-120), txns[1].AmountCents)
	assert.Equal(t, int64(2500), txns[2].AmountCents)
}
