package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sensordash/alertd/internal/alerting"
	"github.com/sensordash/alertd/internal/api"
	apiv2 "github.com/sensordash/alertd/internal/api/v2"
	"github.com/sensordash/alertd/internal/collector"
	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/datastore"
	"github.com/sensordash/alertd/internal/datastore/repository"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/mqtt"
	"github.com/sensordash/alertd/internal/myaudio"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/observability/metrics"
	"github.com/sensordash/alertd/internal/sensor"
	"github.com/sensordash/alertd/internal/sidechannel"
	"github.com/sensordash/alertd/internal/telemetry"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the alert engine and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root)
		},
	}
}

func runServe(ctx context.Context, root *rootOptions) error {
	settings, log, err := root.load(nil)
	if err != nil {
		return err
	}

	flush, err := telemetry.Init(settings.Sentry, version, log)
	if err != nil {
		return err
	}
	defer flush()

	m := metrics.NewAlertMetrics()

	var (
		ruleSource alerting.RuleSource
		readings   alerting.ReadingSource = idleReadings{}
		ruleRepo   repository.AlertRuleRepository
	)
	if settings.Collector.BaseURL != "" {
		client := collector.NewClient(settings.Collector, nil, log)
		ruleSource, readings = client, client
	}
	if settings.Database.Enabled {
		db, err := datastore.Open(settings.Database, log)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
		ruleRepo = repository.NewAlertRuleRepository(db)
		if settings.Alerting.RuleSource == conf.RuleSourceDatabase {
			ruleSource = ruleRepo
		}
	}

	side, closeSide, err := newSideChannel(settings, m, log)
	if err != nil {
		return err
	}
	defer closeSide()

	svc := alerting.Initialize(settings, ruleSource, readings, side, m, log)

	var persister apiv2.SettingsPersister
	if root.configFile != "" {
		persister = &filePersister{path: root.configFile, settings: settings}
	}
	server := api.NewServer(settings.WebServer, apiv2.Dependencies{
		Engine:    svc.Engine,
		Store:     svc.Store,
		Toasts:    svc.Toasts,
		Events:    svc.Events,
		Rules:     svc.Rules,
		RuleRepo:  ruleRepo,
		Bus:       svc.Bus,
		Metrics:   m,
		Persister: persister,
		Logger:    log,
	}, m.Handler(), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	if settings.MQTT.Enabled {
		sub, err := mqtt.NewSubscriber(settings.MQTT, svc.Bus, m, log)
		if err != nil {
			return err
		}
		g.Go(func() error { return sub.Run(gctx) })
	}

	log.Info("alertd started",
		logger.String("version", version),
		logger.String("listen", settings.WebServer.Listen),
		logger.String("rule_source", settings.Alerting.RuleSource),
		logger.Bool("mqtt", settings.MQTT.Enabled))

	err = g.Wait()
	side.Wait()
	log.Info("alertd stopped")
	return err
}

// newSideChannel opens the audio device and push targets the settings ask
// for. The returned function releases them.
func newSideChannel(settings *conf.Settings, m *metrics.AlertMetrics, log logger.Logger) (*sidechannel.Dispatcher, func(), error) {
	var (
		player   sidechannel.Player
		notifier sidechannel.OSNotifier
		closers  []func()
	)

	if settings.Audio.Enabled {
		p, err := myaudio.NewPlayer(settings.Audio.SampleRate, log)
		if err != nil {
			// Hosts without a sound card run without tones.
			log.Warn("audio output unavailable, alert tones disabled", logger.Error(err))
		} else {
			player = sidechannel.NewSpeakerPlayer(p)
			closers = append(closers, func() { _ = p.Close() })
		}
	}

	if settings.Push.Enabled {
		provider := notification.NewShoutrrrProvider("push", true, settings.Push.URLs, settings.Push.Timeout.Std())
		if err := provider.ValidateConfig(); err != nil {
			return nil, nil, err
		}
		notifier = provider
	}

	d := sidechannel.NewDispatcher(player, notifier, settings.Alerting.AudioEnabled, m, log)
	return d, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// idleReadings is the reading source when no dashboard API is configured;
// readings then arrive only over MQTT or POST /api/v2/readings.
type idleReadings struct{}

func (idleReadings) GetLatestReading(context.Context, string) (*sensor.Reading, error) {
	return nil, nil
}

// filePersister writes preference changes back to the config file.
type filePersister struct {
	mu       sync.Mutex
	path     string
	settings *conf.Settings
}

func (p *filePersister) PersistPreferences(audioEnabled, autoHideEnabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings.Alerting.AudioEnabled = audioEnabled
	p.settings.Alerting.AutoHideEnabled = autoHideEnabled
	return conf.Save(p.path, p.settings)
}
