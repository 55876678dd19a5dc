package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sensordash/alertd/internal/alerting"
	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/datastore"
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/datastore/repository"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/observability/metrics"
	"github.com/sensordash/alertd/internal/sensor"
	"github.com/sensordash/alertd/internal/sidechannel"
)

const testDevice = "dev-1"

var dsnSafe = strings.NewReplacer("/", "_", " ", "_")

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

type nopReadings struct{}

func (nopReadings) GetLatestReading(context.Context, string) (*sensor.Reading, error) {
	return nil, nil
}

type recordingPersister struct {
	mu       sync.Mutex
	calls    int
	audio    bool
	autoHide bool
	err      error
}

func (p *recordingPersister) PersistPreferences(audio, autoHide bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.audio, p.autoHide = audio, autoHide
	return p.err
}

type testEnv struct {
	e         *echo.Echo
	ctrl      *Controller
	svc       *alerting.Service
	repo      repository.AlertRuleRepository
	persister *recordingPersister
}

type envConfig struct {
	noRepo bool
	useBus bool
	rate   float64
	burst  int
	side   *sidechannel.Dispatcher

	noEvents  bool
	heartbeat time.Duration
}

type envOption func(*envConfig)

func withoutRepo() envOption { return func(c *envConfig) { c.noRepo = true } }
func withBus() envOption     { return func(c *envConfig) { c.useBus = true } }

func withSideChannel(d *sidechannel.Dispatcher) envOption {
	return func(c *envConfig) { c.side = d }
}

func withoutEvents() envOption { return func(c *envConfig) { c.noEvents = true } }

func withStreamHeartbeat(d time.Duration) envOption {
	return func(c *envConfig) { c.heartbeat = d }
}

func withReadingsLimit(rate float64, burst int) envOption {
	return func(c *envConfig) { c.rate, c.burst = rate, burst }
}

// newTestEnv wires a controller to a real service backed by an in-memory
// SQLite rule database. Readings are evaluated inline unless the bus is kept.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := datastore.Open(conf.DatabaseSettings{
		Enabled: true,
		Driver:  conf.DriverSQLite,
		DSN:     "file:" + dsnSafe.Replace(t.Name()) + "?mode=memory&cache=shared",
	}, testLogger())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	repo := repository.NewAlertRuleRepository(db)

	settings := &conf.Settings{
		Main: conf.MainSettings{DeviceID: testDevice, DeviceName: "Greenhouse"},
		Alerting: conf.AlertingSettings{
			PollInterval:         conf.Duration(time.Hour),
			CooldownWindow:       conf.Duration(5 * time.Minute),
			ToastDuration:        conf.Duration(8 * time.Second),
			ToastRemovalDelay:    conf.Duration(300 * time.Millisecond),
			ToastTickInterval:    conf.Duration(50 * time.Millisecond),
			NotificationCapacity: 50,
			AudioEnabled:         true,
			AutoHideEnabled:      true,
			RuleTTL:              conf.Duration(time.Hour),
			RuleSource:           conf.RuleSourceDatabase,
		},
	}
	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m := metrics.NewAlertMetrics()
	svc := alerting.Initialize(settings, repo, nopReadings{}, cfg.side, m, testLogger())
	t.Cleanup(svc.Bus.Stop)

	persister := &recordingPersister{}
	deps := Dependencies{
		Engine:    svc.Engine,
		Store:     svc.Store,
		Toasts:    svc.Toasts,
		Events:    svc.Events,
		Rules:     svc.Rules,
		RuleRepo:  repo,
		Metrics:   m,
		Persister: persister,

		ReadingsRate:    cfg.rate,
		ReadingsBurst:   cfg.burst,
		StreamHeartbeat: cfg.heartbeat,

		Logger: testLogger(),
	}
	if cfg.noRepo {
		deps.RuleRepo = nil
	}
	if cfg.useBus {
		deps.Bus = svc.Bus
	}
	if cfg.noEvents {
		deps.Events = nil
	}

	e := echo.New()
	ctrl := New(e, deps)
	return &testEnv{e: e, ctrl: ctrl, svc: svc, repo: repo, persister: persister}
}

// do serves a request through the router so path parameters and route
// middleware apply.
func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createRule(t *testing.T, rule entities.AlertRule) *entities.AlertRule {
	t.Helper()
	require.NoError(t, env.repo.CreateRule(t.Context(), &rule))
	return &rule
}

func aboveRule(threshold float64) entities.AlertRule {
	return entities.AlertRule{
		DeviceID:       testDevice,
		SensorName:     "SHT20_CH1",
		SensorType:     "1",
		ConditionType:  entities.ConditionAbove,
		ThresholdValue: threshold,
		IsActive:       true,
	}
}

func readingBody(device string, temp string) string {
	return `{"device_id":"` + device + `","sensors":[{"name":"SHT20_CH1","type":"1","active":true,"values":[` + temp + `,55]}]}`
}
