package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensordash/alertd/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "main:\n  name: test\n")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", s.Main.Name)
	assert.Equal(t, Duration(30*time.Second), s.Alerting.PollInterval)
	assert.Equal(t, Duration(5*time.Minute), s.Alerting.CooldownWindow)
	assert.Equal(t, Duration(8*time.Second), s.Alerting.ToastDuration)
	assert.Equal(t, Duration(300*time.Millisecond), s.Alerting.ToastRemovalDelay)
	assert.Equal(t, 500, s.Alerting.NotificationCapacity)
	assert.True(t, s.Alerting.AudioEnabled)
	assert.True(t, s.Alerting.AutoHideEnabled)
	assert.Equal(t, RuleSourceCollector, s.Alerting.RuleSource)
	assert.Equal(t, DriverSQLite, s.Database.Driver)
	assert.False(t, s.MQTT.Enabled)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
alerting:
  pollinterval: 10s
  toastduration: 4000
  audioenabled: false
  rulesource: database
database:
  enabled: true
  driver: sqlite
  dsn: rules.db
push:
  enabled: true
  urls:
    - ntfy://ntfy.sh/sensors
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(10*time.Second), s.Alerting.PollInterval)
	assert.Equal(t, Duration(4*time.Second), s.Alerting.ToastDuration)
	assert.False(t, s.Alerting.AudioEnabled)
	assert.Equal(t, RuleSourceDatabase, s.Alerting.RuleSource)
	assert.Equal(t, []string{"ntfy://ntfy.sh/sensors"}, s.Push.URLs)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ALERTD_ALERTING_COOLDOWNWINDOW", "2m")
	t.Setenv("ALERTD_MQTT_ENABLED", "true")
	t.Setenv("ALERTD_MQTT_BROKER", "tcp://broker:1883")
	path := writeConfig(t, "log:\n  level: debug\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(2*time.Minute), s.Alerting.CooldownWindow)
	assert.True(t, s.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", s.MQTT.Broker)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "alerting: [oops\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(err))
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "alerting:\n  notificationcapacity: 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
	assert.Contains(t, err.Error(), "notificationcapacity")
}

func TestSave_RoundTrip(t *testing.T) {
	path := writeConfig(t, "")
	s, err := Load(path)
	require.NoError(t, err)

	s.Alerting.AudioEnabled = false
	s.Alerting.AutoHideEnabled = false
	s.Alerting.ToastDuration = Duration(12 * time.Second)
	require.NoError(t, Save(path, s))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, reloaded.Alerting.AudioEnabled)
	assert.False(t, reloaded.Alerting.AutoHideEnabled)
	assert.Equal(t, Duration(12*time.Second), reloaded.Alerting.ToastDuration)
}

func validSettings() Settings {
	return Settings{
		Alerting: AlertingSettings{
			PollInterval:         Duration(DefaultPollInterval),
			CooldownWindow:       Duration(DefaultCooldownWindow),
			ToastDuration:        Duration(DefaultToastDuration),
			ToastRemovalDelay:    Duration(DefaultToastRemovalDelay),
			ToastTickInterval:    Duration(DefaultToastTickInterval),
			NotificationCapacity: DefaultNotificationCapacity,
			RuleSource:           RuleSourceCollector,
		},
		Collector: CollectorSettings{BaseURL: "http://dashboard"},
		Database:  DatabaseSettings{Driver: DriverSQLite, DSN: "x.db"},
	}
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"zero poll", func(s *Settings) { s.Alerting.PollInterval = 0 }, "pollinterval"},
		{"zero cooldown", func(s *Settings) { s.Alerting.CooldownWindow = 0 }, "cooldownwindow"},
		{"negative toast", func(s *Settings) { s.Alerting.ToastDuration = -1 }, "toastduration"},
		{"unknown rule source", func(s *Settings) { s.Alerting.RuleSource = "ftp" }, "rulesource"},
		{"database source without database", func(s *Settings) { s.Alerting.RuleSource = RuleSourceDatabase }, "database.enabled"},
		{"bad driver", func(s *Settings) {
			s.Database.Enabled = true
			s.Database.Driver = "postgres"
		}, "database.driver"},
		{"mqtt without topic", func(s *Settings) {
			s.MQTT.Enabled = true
			s.MQTT.Broker = "tcp://x:1883"
		}, "mqtt"},
		{"push without urls", func(s *Settings) { s.Push.Enabled = true }, "push.urls"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMainSettings_Location(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.UTC, MainSettings{}.Location())
	assert.Equal(t, time.UTC, MainSettings{Timezone: "Not/AZone"}.Location())
}
