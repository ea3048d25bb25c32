package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func TestAnomalyRepositoryInsertAssignsID(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAnomalyRepository(pool)

	a := model.Anomaly{
		EventID:    uuid.NewString(),
		RuleID:     "r1",
		Severity:   model.SeverityCritical,
		Message:    "threshold crossed",
		DetectedAt: time.Now().UTC(),
	}
	inserted, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.AnomalyID)
}

func TestAnomalyRepositoryInsertPreservesExplicitID(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAnomalyRepository(pool)

	id := uuid.NewString()
	a := model.Anomaly{
		AnomalyID:  id,
		EventID:    uuid.NewString(),
		RuleID:     "r1",
		Severity:   model.SeverityWarning,
		Message:    "m",
		DetectedAt: time.Now().UTC(),
	}
	inserted, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, id, inserted.AnomalyID)
}

func TestAnomalyRepositoryListFilters(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAnomalyRepository(pool)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.Insert(ctx, model.Anomaly{
			EventID: uuid.NewString(), RuleID: "r1", Severity: model.SeverityCritical,
			Message: "m", DetectedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, model.Anomaly{
		EventID: uuid.NewString(), RuleID: "r2", Severity: model.SeverityWarning,
		Message: "m", DetectedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	byRule, err := repo.List(ctx, AnomalyFilter{RuleID: "r1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byRule, 2)

	bySeverity, err := repo.List(ctx, AnomalyFilter{Severity: "warning", Limit: 10})
	require.NoError(t, err)
	require.Len(t, bySeverity, 1)
	assert.Equal(t, "r2", bySeverity[0].RuleID)

	paged, err := repo.List(ctx, AnomalyFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}
