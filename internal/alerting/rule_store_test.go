package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensordash/alertd/internal/errors"
)

func TestRuleStore_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	src := newFakeRuleSource()
	src.set("dev-1", aboveRule(1, "dev-1", "1", 35))
	store := NewRuleStore(src, time.Hour, testLogger())

	for range 3 {
		rules, err := store.Rules(t.Context(), "dev-1")
		require.NoError(t, err)
		require.Len(t, rules, 1)
	}
	assert.Equal(t, 1, src.callCount())
}

func TestRuleStore_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	src := newFakeRuleSource()
	store := NewRuleStore(src, 20*time.Millisecond, testLogger())

	_, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := store.Rules(t.Context(), "dev-1")
		return err == nil && src.callCount() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestRuleStore_Invalidate(t *testing.T) {
	t.Parallel()

	src := newFakeRuleSource()
	src.set("dev-1", aboveRule(1, "dev-1", "1", 35))
	store := NewRuleStore(src, time.Hour, testLogger())

	_, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)

	src.set("dev-1", aboveRule(1, "dev-1", "1", 35), belowRule(2, "dev-1", "1", 5))
	store.Invalidate("dev-1")

	rules, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	store.Invalidate("")
	_, err = store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, 3, src.callCount())
}

func TestRuleStore_FailureFallsBackToSnapshot(t *testing.T) {
	t.Parallel()

	src := newFakeRuleSource()
	src.set("dev-1", aboveRule(1, "dev-1", "1", 35))
	store := NewRuleStore(src, time.Hour, testLogger())

	_, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)

	boom := errors.NewStd("collector down")
	src.fail(boom)

	rules, err := store.Refresh(t.Context(), "dev-1")
	require.ErrorIs(t, err, boom)
	require.Len(t, rules, 1, "last good rules are kept")
	assert.Equal(t, uint(1), rules[0].ID)

	rules, err = store.Rules(t.Context(), "dev-2")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, rules, "a device never fetched has no snapshot")
}

func TestRuleStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	src := newFakeRuleSource()
	src.set("dev-1", aboveRule(1, "dev-1", "1", 35))
	store := NewRuleStore(src, time.Hour, testLogger())

	rules, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)
	rules[0].ThresholdValue = 999

	again, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)
	assert.InDelta(t, 35.0, again[0].ThresholdValue, 1e-9)

	snap, ok := store.Snapshot("dev-1")
	require.True(t, ok)
	assert.InDelta(t, 35.0, snap[0].ThresholdValue, 1e-9)
}

func TestRuleStore_EmptyRulesAreCached(t *testing.T) {
	t.Parallel()

	src := newFakeRuleSource()
	store := NewRuleStore(src, time.Hour, testLogger())

	rules, err := store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)
	assert.Empty(t, rules)

	_, err = store.Rules(t.Context(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.callCount())

	_, ok := store.Snapshot("dev-1")
	assert.True(t, ok)
}
