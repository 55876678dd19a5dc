package conf

import (
	"fmt"
	"strings"

	"github.com/sensordash/alertd/internal/errors"
)

// Validate reports the first impossible setting.
func (s *Settings) Validate() error {
	a := &s.Alerting
	switch {
	case a.PollInterval <= 0:
		return invalid("alerting.pollinterval", a.PollInterval, "must be positive")
	case a.CooldownWindow <= 0:
		return invalid("alerting.cooldownwindow", a.CooldownWindow, "must be positive")
	case a.ToastDuration < 0:
		return invalid("alerting.toastduration", a.ToastDuration, "must not be negative")
	case a.ToastRemovalDelay < 0:
		return invalid("alerting.toastremovaldelay", a.ToastRemovalDelay, "must not be negative")
	case a.ToastTickInterval <= 0:
		return invalid("alerting.toasttickinterval", a.ToastTickInterval, "must be positive")
	case a.NotificationCapacity <= 0:
		return invalid("alerting.notificationcapacity", a.NotificationCapacity, "must be positive")
	case a.RuleTTL < 0:
		return invalid("alerting.rulettl", a.RuleTTL, "must not be negative")
	}

	switch a.RuleSource {
	case RuleSourceCollector:
		if s.Collector.BaseURL == "" {
			return invalid("collector.baseurl", "", "required when rulesource is collector")
		}
	case RuleSourceDatabase:
		if !s.Database.Enabled {
			return invalid("database.enabled", false, "required when rulesource is database")
		}
	default:
		return invalid("alerting.rulesource", a.RuleSource, "must be collector or database")
	}

	if s.Database.Enabled {
		switch strings.ToLower(s.Database.Driver) {
		case DriverSQLite, DriverMySQL:
		default:
			return invalid("database.driver", s.Database.Driver, "must be sqlite or mysql")
		}
		if s.Database.DSN == "" {
			return invalid("database.dsn", "", "required when database is enabled")
		}
	}

	if s.MQTT.Enabled {
		if s.MQTT.Broker == "" || s.MQTT.Topic == "" {
			return invalid("mqtt", s.MQTT.Broker, "broker and topic are required when mqtt is enabled")
		}
		if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
			return invalid("mqtt.qos", s.MQTT.QoS, "must be 0, 1 or 2")
		}
	}

	if s.Push.Enabled && len(s.Push.URLs) == 0 {
		return invalid("push.urls", "", "at least one URL is required when push is enabled")
	}
	if s.Audio.Enabled && s.Audio.SampleRate <= 0 {
		return invalid("audio.samplerate", s.Audio.SampleRate, "must be positive")
	}
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return invalid("sentry.dsn", "", "required when sentry is enabled")
	}
	return nil
}

func invalid(key string, value any, reason string) error {
	return errors.Newf("invalid setting %s: %s", key, reason).
		Component("conf").
		Category(errors.CategoryValidation).
		Context("key", key).
		Context("value", fmt.Sprint(value)).
		Build()
}
