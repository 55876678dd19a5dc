// Package telemetry forwards built errors to Sentry when enabled.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
)

const flushTimeout = 2 * time.Second

// Init configures the Sentry client and installs it as the error reporter.
// It is a no-op when Sentry is disabled. The returned function flushes
// pending events and must be called on shutdown.
func Init(settings conf.SentrySettings, release string, log logger.Logger) (func(), error) {
	return initWithOptions(settings, release, log, nil)
}

func initWithOptions(settings conf.SentrySettings, release string, log logger.Logger,
	beforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event,
) (func(), error) {
	if !settings.Enabled {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return nil, errors.Newf("failed to initialize sentry: %w", err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetReporter(captureError)
	log.Info("error reporting enabled", logger.String("environment", settings.Environment))

	return func() {
		errors.SetReporter(nil)
		sentry.Flush(flushTimeout)
	}, nil
}

func captureError(ee *errors.EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component())
		scope.SetTag("category", string(ee.Category()))
		if ctx := ee.Context(); len(ctx) > 0 {
			scope.SetContext("error", sentry.Context(ctx))
		}
		sentry.CaptureException(ee)
	})
}
