package alerting

import (
	"time"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/notification"
)

// DefaultPollInterval is how often the engine fetches the latest reading.
const DefaultPollInterval = 30 * time.Second

// EngineConfig holds the engine's tunables. It is passed explicitly and
// replaced as a whole through Engine.UpdateConfig.
type EngineConfig struct {
	PollInterval         time.Duration `json:"pollInterval"`
	CooldownWindow       time.Duration `json:"cooldownWindow"`
	ToastDuration        time.Duration `json:"toastDuration"`
	ToastRemovalDelay    time.Duration `json:"toastRemovalDelay"`
	ToastTickInterval    time.Duration `json:"toastTickInterval"`
	NotificationCapacity int           `json:"notificationCapacity"`
	AudioEnabled         bool          `json:"audioEnabled"`
	AutoHideEnabled      bool          `json:"autoHideEnabled"`
	RuleTTL              time.Duration `json:"ruleTtl"`
}

// DefaultEngineConfig returns the settings the dashboard ships with. Audio
// and auto-hide both start enabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PollInterval:         DefaultPollInterval,
		CooldownWindow:       DefaultCooldownWindow,
		ToastDuration:        notification.DefaultToastDuration,
		ToastRemovalDelay:    notification.DefaultToastRemovalDelay,
		ToastTickInterval:    notification.DefaultToastTickInterval,
		NotificationCapacity: notification.DefaultCapacity,
		AudioEnabled:         true,
		AutoHideEnabled:      true,
		RuleTTL:              DefaultRuleTTL,
	}
}

// EngineConfigFromSettings maps the alerting section of the settings file.
func EngineConfigFromSettings(s *conf.AlertingSettings) EngineConfig {
	return EngineConfig{
		PollInterval:         s.PollInterval.Std(),
		CooldownWindow:       s.CooldownWindow.Std(),
		ToastDuration:        s.ToastDuration.Std(),
		ToastRemovalDelay:    s.ToastRemovalDelay.Std(),
		ToastTickInterval:    s.ToastTickInterval.Std(),
		NotificationCapacity: s.NotificationCapacity,
		AudioEnabled:         s.AudioEnabled,
		AutoHideEnabled:      s.AutoHideEnabled,
		RuleTTL:              s.RuleTTL.Std(),
	}.withDefaults()
}

// withDefaults fills zero or negative durations and sizes. A zero toast
// duration is kept; it means toasts never auto-hide.
func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CooldownWindow <= 0 {
		c.CooldownWindow = d.CooldownWindow
	}
	if c.ToastDuration < 0 {
		c.ToastDuration = d.ToastDuration
	}
	if c.ToastRemovalDelay < 0 {
		c.ToastRemovalDelay = d.ToastRemovalDelay
	}
	if c.ToastTickInterval <= 0 {
		c.ToastTickInterval = d.ToastTickInterval
	}
	if c.NotificationCapacity <= 0 {
		c.NotificationCapacity = d.NotificationCapacity
	}
	if c.RuleTTL < 0 {
		c.RuleTTL = d.RuleTTL
	}
	return c
}
