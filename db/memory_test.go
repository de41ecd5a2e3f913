package db

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

func TestMemoryPaymentRepositoryLatestCompleted(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()
	now := time.Now()
	older, newer := now.Add(-2*time.Hour), now.Add(-time.Hour)
	hash := "0xabc"

	records := []models.PaymentRecord{
		{PaymentID: "p1", Service: "chat", Amount: decimal.RequireFromString("0.01"), UserAddress: "0xAbC", Status: models.PaymentCompleted, PaidAt: &older, CreatedAt: older},
		{PaymentID: "p2", Service: "chat", Amount: decimal.RequireFromString("0.01"), UserAddress: "0xabc", Status: models.PaymentCompleted, PaidAt: &newer, TransactionHash: &hash, CreatedAt: newer},
		{PaymentID: "p3", Service: "chat", UserAddress: "0xabc", Status: models.PaymentPending, CreatedAt: now},
		{PaymentID: "p4", Service: "swap-quote", UserAddress: "0xabc", Status: models.PaymentCompleted, PaidAt: &now, CreatedAt: now},
	}
	for i := range records {
		require.NoError(t, repo.Create(ctx, &records[i]))
	}

	latest, err := repo.LatestCompleted(ctx, "0xABC", "chat")
	require.NoError(t, err)
	assert.Equal(t, "p2", latest.PaymentID)

	_, err = repo.LatestCompleted(ctx, "0xabc", "strategy-execute")
	var appErr errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.ErrNotFound, appErr.Type)

	list, err := repo.ListByAddress(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "p1", list[3].PaymentID)

	assert.Error(t, repo.Create(ctx, &records[0]))
}

func TestMemoryPaymentRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.PaymentRecord{PaymentID: "p1", Status: models.PaymentPending}))

	record, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	record.Status = models.PaymentCompleted

	stored, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.Status)

	require.NoError(t, repo.Update(ctx, record))
	stored, _ = repo.Get(ctx, "p1")
	assert.Equal(t, models.PaymentCompleted, stored.Status)

	assert.Error(t, repo.Update(ctx, &models.PaymentRecord{PaymentID: "missing"}))
}

func TestMemoryRuleRepository(t *testing.T) {
	repo := NewMemoryRuleRepository()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"r1", "r2", "r3"} {
		user := "alice"
		if id == "r3" {
			user = "bob"
		}
		require.NoError(t, repo.Create(ctx, &models.AutomationRule{
			ID:         id,
			UserID:     user,
			Type:       models.YieldOptimizationRule,
			Conditions: models.YieldOptimization{MinAPY: 5},
			Status:     models.RuleActive,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	rules, err := repo.List(ctx, RuleFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID)

	rule, err := repo.Get(ctx, "r2")
	require.NoError(t, err)
	rule.Status = models.RulePaused
	require.NoError(t, repo.Update(ctx, rule))

	active, err := repo.List(ctx, RuleFilter{Status: models.RuleActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, repo.Delete(ctx, "r1"))
	_, err = repo.Get(ctx, "r1")
	assert.Error(t, err)
	assert.Error(t, repo.Delete(ctx, "r1"))
}

func TestMemoryPaymentCacheExpires(t *testing.T) {
	now := time.Now()
	cache := NewMemoryPaymentCache(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.MarkPaid(ctx, "0xABC", "chat", now.Add(time.Hour)))

	until, ok, err := cache.PaidUntil(ctx, "0xabc", "chat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, now.Add(time.Hour), until)

	now = now.Add(time.Hour)
	_, ok, err = cache.PaidUntil(ctx, "0xabc", "chat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectRulesFilters(t *testing.T) {
	query, args, err := selectRules(RuleFilter{UserID: "alice", Status: models.RuleActive}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FROM automation_rules WHERE user_id = ? AND status = ? ORDER BY created_at ASC")
	assert.Equal(t, []any{"alice", models.RuleActive}, args)
}
