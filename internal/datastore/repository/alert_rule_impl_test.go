package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/errors"
)

// setupAlertTestDB creates an in-memory SQLite database for alert rule tests.
// Each test gets its own named database; a single connection keeps every
// query on the same in-memory instance.
func setupAlertTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=ON"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.AlertRule{}), "failed to migrate alert tables")
	return db
}

func intPtr(i int) *int { return &i }

// createTestRule creates an active rule on the given device.
func createTestRule(t *testing.T, repo AlertRuleRepository, deviceID, sensorType string, threshold float64) *entities.AlertRule {
	t.Helper()
	rule := &entities.AlertRule{
		DeviceID:       deviceID,
		SensorType:     sensorType,
		ConditionType:  entities.ConditionAbove,
		ThresholdValue: threshold,
		IsActive:       true,
	}
	require.NoError(t, repo.CreateRule(t.Context(), rule))
	return rule
}

func TestAlertRuleRepository_CreateAndGet(t *testing.T) {
	db := setupAlertTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	rule := &entities.AlertRule{
		DeviceID:       "dev-1",
		SensorName:     "SHT20_CH1",
		SensorType:     "1",
		ValueIndex:     intPtr(1),
		ConditionType:  entities.ConditionBelow,
		ThresholdValue: 40,
		IsActive:       true,
	}
	require.NoError(t, repo.CreateRule(ctx, rule))
	require.NotZero(t, rule.ID)

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", got.DeviceID)
	assert.Equal(t, "SHT20_CH1", got.SensorName)
	require.NotNil(t, got.ValueIndex)
	assert.Equal(t, 1, *got.ValueIndex)
	assert.Equal(t, entities.ConditionBelow, got.ConditionType)
	assert.InDelta(t, 40, got.ThresholdValue, 0)
	assert.True(t, got.IsActive)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestAlertRuleRepository_CreateInactive(t *testing.T) {
	repo := NewAlertRuleRepository(setupAlertTestDB(t))
	ctx := t.Context()

	rule := &entities.AlertRule{DeviceID: "d", SensorType: "5", ConditionType: entities.ConditionAbove, ThresholdValue: 10}
	require.NoError(t, repo.CreateRule(ctx, rule))

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.ValueIndex)
}

func TestAlertRuleRepository_CreateRejectsInvalid(t *testing.T) {
	repo := NewAlertRuleRepository(setupAlertTestDB(t))

	err := repo.CreateRule(t.Context(), &entities.AlertRule{DeviceID: "d", SensorType: "1", ConditionType: "equals"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
}

func TestAlertRuleRepository_GetNotFound(t *testing.T) {
	repo := NewAlertRuleRepository(setupAlertTestDB(t))

	_, err := repo.GetRule(t.Context(), 999)
	require.ErrorIs(t, err, ErrAlertRuleNotFound)
}

func TestAlertRuleRepository_ListAndFilter(t *testing.T) {
	repo := NewAlertRuleRepository(setupAlertTestDB(t))
	ctx := t.Context()

	createTestRule(t, repo, "dev-1", "1", 30)
	createTestRule(t, repo, "dev-1", "5", 25)
	inactive := createTestRule(t, repo, "dev-1", "1", 35)
	createTestRule(t, repo, "dev-2", "1", 20)
	require.NoError(t, repo.ToggleRule(ctx, inactive.ID, false))

	rules, err := repo.GetAlertRules(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Less(t, rules[0].ID, rules[1].ID)

	active := true
	rules, err = repo.ListRules(ctx, AlertRuleFilter{DeviceID: "dev-1", SensorType: "1", Active: &active})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.InDelta(t, 30, rules[0].ThresholdValue, 0)

	count, err := repo.CountRules(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rules, err = repo.GetAlertRules(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestAlertRuleRepository_Update(t *testing.T) {
	repo := NewAlertRuleRepository(setupAlertTestDB(t))
	ctx := t.Context()

	rule := createTestRule(t, repo, "dev-1", "1", 30)

	rule.ThresholdValue = 32.5
	rule.IsActive = false
	rule.SensorName = "SHT20_CH2"
	require.NoError(t, repo.UpdateRule(ctx, rule))

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.InDelta(t, 32.5, got.ThresholdValue, 0)
	assert.False(t, got.IsActive)
	assert.Equal(t, "SHT20_CH2", got.SensorName)

	missing := *rule
	missing.ID = 4242
	require.ErrorIs(t, repo.UpdateRule(ctx, &missing), ErrAlertRuleNotFound)

	noID := *rule
	noID.ID = 0
	require.Error(t, repo.UpdateRule(ctx, &noID))
}

func TestAlertRuleRepository_ToggleAndDelete(t *testing.T) {
	repo := NewAlertRuleRepository(setupAlertTestDB(t))
	ctx := t.Context()

	rule := createTestRule(t, repo, "dev-1", "1", 30)

	require.NoError(t, repo.ToggleRule(ctx, rule.ID, false))
	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.ErrorIs(t, repo.ToggleRule(ctx, 999, true), ErrAlertRuleNotFound)

	require.NoError(t, repo.DeleteRule(ctx, rule.ID))
	_, err = repo.GetRule(ctx, rule.ID)
	require.ErrorIs(t, err, ErrAlertRuleNotFound)
	require.ErrorIs(t, repo.DeleteRule(ctx, rule.ID), ErrAlertRuleNotFound)
}
