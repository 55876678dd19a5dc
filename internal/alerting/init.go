package alerting

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/observability/metrics"
	"github.com/sensordash/alertd/internal/sidechannel"
)

// Service bundles the engine with the state it owns.
type Service struct {
	Engine *Engine
	Rules  *RuleStore
	Store  *notification.Store
	Toasts *notification.ToastManager
	Events *notification.Broadcaster
	Bus    *ReadingEventBus

	cfg EngineConfig
	log logger.Logger
}

// Initialize builds the engine and its stores from settings, subscribes the
// engine to a new reading bus and selects the configured device, if any.
// side and m may be nil.
func Initialize(
	settings *conf.Settings,
	ruleSource RuleSource,
	readings ReadingSource,
	side *sidechannel.Dispatcher,
	m *metrics.AlertMetrics,
	log logger.Logger,
) *Service {
	cfg := EngineConfigFromSettings(&settings.Alerting)

	rules := NewRuleStore(ruleSource, cfg.RuleTTL, log)
	store := notification.NewStore(cfg.NotificationCapacity)
	toasts := notification.NewToastManager(cfg.ToastRemovalDelay)
	events := notification.NewBroadcaster(notification.DefaultSubscriberBuffer)
	store.PublishTo(events)
	toasts.PublishTo(events)
	engine := NewEngine(cfg, rules, readings, store, toasts, side, m, log)

	bus := NewReadingEventBus(log)
	engine.SubscribeTo(bus)

	m.RegisterStateGauges(
		func() float64 { return float64(store.UnreadCount()) },
		func() float64 { return float64(len(toasts.Active())) },
		func() float64 {
			if engine.Healthy() {
				return 1
			}
			return 0
		},
	)

	if settings.Main.DeviceID != "" {
		engine.SetCurrentDevice(settings.Main.DeviceID, settings.Main.DeviceName)
	}

	log.Info("alerting engine initialized",
		logger.String("rule_source", settings.Alerting.RuleSource),
		logger.String("device_id", settings.Main.DeviceID),
		logger.Duration("poll_interval", cfg.PollInterval),
		logger.Duration("cooldown_window", cfg.CooldownWindow))

	return &Service{
		Engine: engine,
		Rules:  rules,
		Store:  store,
		Toasts: toasts,
		Events: events,
		Bus:    bus,
		cfg:    cfg,
		log:    log,
	}
}

// Run drives the polling loop and the toast ticker until ctx is cancelled,
// then stops the reading bus.
func (s *Service) Run(ctx context.Context) error {
	defer s.Bus.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Engine.Run(gctx)
	})
	g.Go(func() error {
		s.Toasts.Run(gctx, s.cfg.ToastTickInterval)
		return nil
	})
	return g.Wait()
}
