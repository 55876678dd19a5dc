package alerting

import (
	"context"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/sensor"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

// fakeRuleSource serves rules from memory and counts fetches.
type fakeRuleSource struct {
	mu    sync.Mutex
	rules map[string][]entities.AlertRule
	err   error
	calls int
}

func newFakeRuleSource() *fakeRuleSource {
	return &fakeRuleSource{rules: make(map[string][]entities.AlertRule)}
}

func (f *fakeRuleSource) GetAlertRules(_ context.Context, deviceID string) ([]entities.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.rules[deviceID]), nil
}

func (f *fakeRuleSource) set(deviceID string, rules ...entities.AlertRule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[deviceID] = rules
}

func (f *fakeRuleSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeRuleSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeReadingSource returns a fixed reading or error.
type fakeReadingSource struct {
	mu      sync.Mutex
	reading *sensor.Reading
	err     error
	calls   int
}

func (f *fakeReadingSource) GetLatestReading(_ context.Context, _ string) (*sensor.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.reading == nil {
		return nil, nil
	}
	r := *f.reading
	r.Sensors = slices.Clone(f.reading.Sensors)
	return &r, nil
}

func (f *fakeReadingSource) set(r *sensor.Reading, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = r
	f.err = err
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// aboveRule returns an active type-matched rule.
func aboveRule(id uint, deviceID, sensorType string, threshold float64) entities.AlertRule {
	return entities.AlertRule{
		ID:             id,
		DeviceID:       deviceID,
		SensorType:     sensorType,
		ConditionType:  entities.ConditionAbove,
		ThresholdValue: threshold,
		IsActive:       true,
	}
}

func belowRule(id uint, deviceID, sensorType string, threshold float64) entities.AlertRule {
	r := aboveRule(id, deviceID, sensorType, threshold)
	r.ConditionType = entities.ConditionBelow
	return r
}

// sht20Reading returns a reading with one active SHT20 channel reporting
// temperature and humidity.
func sht20Reading(deviceID string, temperature float64) *sensor.Reading {
	return &sensor.Reading{
		DeviceID:  deviceID,
		Timestamp: baseTime,
		Sensors: []sensor.Channel{
			{
				Name:   "SHT20_CH1",
				Type:   "1",
				Active: true,
				Values: []sensor.Value{sensor.Number(temperature), sensor.Number(55)},
			},
		},
	}
}

// testRig wires an engine to in-memory collaborators and a fake clock.
type testRig struct {
	engine   *Engine
	rules    *fakeRuleSource
	readings *fakeReadingSource
	store    *notification.Store
	toasts   *notification.ToastManager
	clock    *fakeClock
}

func newTestRig(t *testing.T, cfg EngineConfig) *testRig {
	t.Helper()
	rig := &testRig{
		rules:    newFakeRuleSource(),
		readings: &fakeReadingSource{},
		store:    notification.NewStore(cfg.NotificationCapacity),
		toasts:   notification.NewToastManager(cfg.ToastRemovalDelay),
		clock:    &fakeClock{now: baseTime},
	}
	rig.engine = NewEngine(cfg,
		NewRuleStore(rig.rules, time.Hour, testLogger()),
		rig.readings, rig.store, rig.toasts, nil, nil, testLogger())
	rig.engine.now = rig.clock.Now
	return rig
}
