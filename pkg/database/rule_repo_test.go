package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func testRule() model.Rule {
	return model.Rule{
		Name:            "high-error-rate",
		Enabled:         true,
		Severity:        model.SeverityCritical,
		WindowSeconds:   60,
		CooldownSeconds: 30,
		Condition: model.Condition{
			Type:     "threshold",
			Metric:   "count",
			Filters:  model.Filters{EventType: "error", Source: "payment_service"},
			Operator: model.OpGT,
			Value:    5,
		},
	}
}

func TestRuleRepositoryCreateAndGet(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, testRule())
	require.NoError(t, err)
	assert.NotEmpty(t, created.RuleID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, created.RuleID)
	require.NoError(t, err)
	assert.Equal(t, created.RuleID, got.RuleID)
	assert.Equal(t, "high-error-rate", got.Name)
	assert.Equal(t, model.OpGT, got.Condition.Operator)
	assert.Equal(t, "payment_service", got.Condition.Filters.Source)
}

func TestRuleRepositoryGetNotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)

	_, err := repo.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuleRepositoryListFiltersEnabled(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	enabled := testRule()
	_, err := repo.Create(ctx, enabled)
	require.NoError(t, err)

	disabled := testRule()
	disabled.Name = "disabled-rule"
	disabled.Enabled = false
	_, err = repo.Create(ctx, disabled)
	require.NoError(t, err)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyEnabled, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, onlyEnabled, 1)
	assert.True(t, onlyEnabled[0].Enabled)
}

func TestRuleRepositoryUpdate(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, testRule())
	require.NoError(t, err)

	created.Name = "renamed"
	created.CooldownSeconds = 120
	updated, err := repo.Update(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 120, updated.CooldownSeconds)

	got, err := repo.Get(ctx, created.RuleID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestRuleRepositoryUpdateNotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)

	rule := testRule()
	rule.RuleID = "00000000-0000-0000-0000-000000000000"
	_, err := repo.Update(context.Background(), rule)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuleRepositoryDelete(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, testRule())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.RuleID))

	_, err = repo.Get(ctx, created.RuleID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuleRepositoryDeleteNotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRuleRepository(pool)

	err := repo.Delete(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}
