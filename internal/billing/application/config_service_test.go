package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/billing/infrastructure/memory"
)

func ptr[T any](v T) *T { return &v }

func TestConfigServiceGetReturnsDefaults(t *testing.T) {
	svc, err := NewConfigService(memory.NewConfigStore())
	require.NoError(t, err)

	cfg, stored, err := svc.Get(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, billing.DefaultConfig("owner-1"), cfg)

	_, _, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, billing.ErrEmptyOwnerID)
}

func TestConfigServiceUpsertMergesPartialUpdates(t *testing.T) {
	store := memory.NewConfigStore()
	svc, err := NewConfigService(store)
	require.NoError(t, err)
	ctx := context.Background()

	cfg, err := svc.Upsert(ctx, "owner-1", ConfigUpdate{GracePeriodDays: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.GracePeriodDays)
	assert.Equal(t, billing.DefaultDueDayOffset, cfg.DueDayOffset)
	assert.True(t, cfg.LateFeeEnabled)

	cfg, err = svc.Upsert(ctx, "owner-1", ConfigUpdate{LateFeeEnabled: ptr(false), GenerationDay: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.GracePeriodDays)
	assert.Equal(t, 3, cfg.GenerationDay)
	assert.False(t, cfg.LateFeeEnabled)

	got, stored, err := svc.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, 3, got.GenerationDay)
}

func TestConfigServiceUpsertRejectsInvalidValues(t *testing.T) {
	store := memory.NewConfigStore()
	svc, err := NewConfigService(store)
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), "owner-1", ConfigUpdate{DueDayOffset: ptr(31)})
	assert.ErrorIs(t, err, billing.ErrInvalidConfig)
	_, err = svc.Upsert(context.Background(), "owner-1", ConfigUpdate{MaxLateFeePercentage: ptr(150.0)})
	assert.ErrorIs(t, err, billing.ErrInvalidConfig)

	stored, err := store.GetConfig(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}
