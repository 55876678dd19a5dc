// Package conf loads and validates alertd settings.
package conf

import "time"

// Rule sources.
const (
	RuleSourceCollector = "collector"
	RuleSourceDatabase  = "database"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Settings is the root configuration object.
type Settings struct {
	Main      MainSettings      `mapstructure:"main" yaml:"main" json:"main"`
	Log       LogSettings       `mapstructure:"log" yaml:"log" json:"log"`
	Alerting  AlertingSettings  `mapstructure:"alerting" yaml:"alerting" json:"alerting"`
	Collector CollectorSettings `mapstructure:"collector" yaml:"collector" json:"collector"`
	Database  DatabaseSettings  `mapstructure:"database" yaml:"database" json:"database"`
	MQTT      MQTTSettings      `mapstructure:"mqtt" yaml:"mqtt" json:"mqtt"`
	Audio     AudioSettings     `mapstructure:"audio" yaml:"audio" json:"audio"`
	Push      PushSettings      `mapstructure:"push" yaml:"push" json:"push"`
	WebServer WebServerSettings `mapstructure:"webserver" yaml:"webserver" json:"webserver"`
	Sentry    SentrySettings    `mapstructure:"sentry" yaml:"sentry" json:"sentry"`
}

// MainSettings holds process-wide options.
type MainSettings struct {
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	// DeviceID selects a device at startup; empty means none until the
	// dashboard calls PUT /api/v2/device.
	DeviceID   string `mapstructure:"deviceid" yaml:"deviceid" json:"deviceId"`
	DeviceName string `mapstructure:"devicename" yaml:"devicename" json:"deviceName"`
	Timezone   string `mapstructure:"timezone" yaml:"timezone" json:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (m MainSettings) Location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// AlertingSettings configures the alert engine.
type AlertingSettings struct {
	PollInterval         Duration `mapstructure:"pollinterval" yaml:"pollinterval" json:"pollInterval"`
	CooldownWindow       Duration `mapstructure:"cooldownwindow" yaml:"cooldownwindow" json:"cooldownWindow"`
	ToastDuration        Duration `mapstructure:"toastduration" yaml:"toastduration" json:"toastDuration"`
	ToastRemovalDelay    Duration `mapstructure:"toastremovaldelay" yaml:"toastremovaldelay" json:"toastRemovalDelay"`
	ToastTickInterval    Duration `mapstructure:"toasttickinterval" yaml:"toasttickinterval" json:"toastTickInterval"`
	NotificationCapacity int      `mapstructure:"notificationcapacity" yaml:"notificationcapacity" json:"notificationCapacity"`
	AudioEnabled         bool     `mapstructure:"audioenabled" yaml:"audioenabled" json:"audioEnabled"`
	AutoHideEnabled      bool     `mapstructure:"autohideenabled" yaml:"autohideenabled" json:"autoHideEnabled"`
	RuleTTL              Duration `mapstructure:"rulettl" yaml:"rulettl" json:"ruleTtl"`
	RuleSource           string   `mapstructure:"rulesource" yaml:"rulesource" json:"ruleSource"`
}

// CollectorSettings points at the dashboard REST API that serves rules and readings.
type CollectorSettings struct {
	BaseURL string   `mapstructure:"baseurl" yaml:"baseurl" json:"baseUrl"`
	Token   string   `mapstructure:"token" yaml:"token" json:"-"`
	Timeout Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// DatabaseSettings configures the local rule store.
type DatabaseSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Driver  string `mapstructure:"driver" yaml:"driver" json:"driver"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" json:"-"`
}

// MQTTSettings configures out-of-band reading intake.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker" json:"broker"`
	Topic    string `mapstructure:"topic" yaml:"topic" json:"topic"`
	ClientID string `mapstructure:"clientid" yaml:"clientid" json:"clientId"`
	Username string `mapstructure:"username" yaml:"username" json:"username"`
	Password string `mapstructure:"password" yaml:"password" json:"-"`
	QoS      int    `mapstructure:"qos" yaml:"qos" json:"qos"`
}

// AudioSettings configures tone playback on the host speaker.
type AudioSettings struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	SampleRate int  `mapstructure:"samplerate" yaml:"samplerate" json:"sampleRate"`
}

// PushSettings configures OS/push notifications through shoutrrr URLs.
type PushSettings struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	URLs    []string `mapstructure:"urls" yaml:"urls" json:"-"`
	Timeout Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen string `mapstructure:"listen" yaml:"listen" json:"listen"`
	// ReadingsRate is the per-client requests/second allowed on POST /readings.
	ReadingsRate  float64 `mapstructure:"readingsrate" yaml:"readingsrate" json:"readingsRate"`
	ReadingsBurst int     `mapstructure:"readingsburst" yaml:"readingsburst" json:"readingsBurst"`
}

// SentrySettings configures error reporting.
type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn" json:"-"`
	Environment string `mapstructure:"environment" yaml:"environment" json:"environment"`
}
