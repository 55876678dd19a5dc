//go:build integration

package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/datastore"
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/datastore/repository"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/testutil/containers"
)

var mysqlDB *gorm.DB

// TestMain starts one MySQL container for every test in this package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := containers.NewMySQLContainer(ctx, nil)
	if err != nil {
		panic("failed to create MySQL container: " + err.Error())
	}

	mysqlDB, err = datastore.Open(conf.DatabaseSettings{
		Enabled: true,
		Driver:  conf.DriverMySQL,
		DSN:     container.GetDSN(),
	}, logger.NewNop())
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to open MySQL database: " + err.Error())
	}

	code := m.Run()

	if sqlDB, err := mysqlDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := container.Terminate(ctx); err != nil {
		panic("failed to terminate MySQL container: " + err.Error())
	}
	os.Exit(code)
}

func resetRules(t *testing.T) {
	t.Helper()
	require.NoError(t, mysqlDB.Exec("DELETE FROM alert_rules").Error)
}

func TestMySQL_RuleLifecycle(t *testing.T) {
	resetRules(t)
	repo := repository.NewAlertRuleRepository(mysqlDB)
	ctx := t.Context()

	idx := 1
	rule := &entities.AlertRule{
		DeviceID:       "dev-1",
		SensorName:     "SHT20_CH1",
		ValueIndex:     &idx,
		ConditionType:  entities.ConditionAbove,
		ThresholdValue: 55,
		IsActive:       true,
	}
	require.NoError(t, repo.CreateRule(ctx, rule))

	// Writing unchanged values must not be reported as a missing rule.
	require.NoError(t, repo.UpdateRule(ctx, rule))

	rule.ThresholdValue = 60
	require.NoError(t, repo.UpdateRule(ctx, rule))

	rules, err := repo.GetAlertRules(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.InDelta(t, 60, rules[0].ThresholdValue, 0)
	require.NotNil(t, rules[0].ValueIndex)
	assert.Equal(t, 1, *rules[0].ValueIndex)

	require.NoError(t, repo.ToggleRule(ctx, rule.ID, false))
	require.NoError(t, repo.DeleteRule(ctx, rule.ID))
	require.ErrorIs(t, repo.DeleteRule(ctx, rule.ID), repository.ErrAlertRuleNotFound)
}

func TestMySQL_CountByDevice(t *testing.T) {
	resetRules(t)
	repo := repository.NewAlertRuleRepository(mysqlDB)
	ctx := t.Context()

	for _, device := range []string{"a", "a", "b"} {
		require.NoError(t, repo.CreateRule(ctx, &entities.AlertRule{
			DeviceID: device, SensorType: "5", ConditionType: entities.ConditionBelow, ThresholdValue: 5, IsActive: true,
		}))
	}

	count, err := repo.CountRules(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
