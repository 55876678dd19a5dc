package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Defaults used when neither the config file nor the environment set a value.
const (
	DefaultPollInterval         = 30 * time.Second
	DefaultCooldownWindow       = 5 * time.Minute
	DefaultToastDuration        = 8 * time.Second
	DefaultToastRemovalDelay    = 300 * time.Millisecond
	DefaultToastTickInterval    = 50 * time.Millisecond
	DefaultNotificationCapacity = 500
	DefaultRuleTTL              = time.Minute
	DefaultSampleRate           = 48000
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("main.name", "alertd")
	v.SetDefault("main.deviceid", "")
	v.SetDefault("main.devicename", "")
	v.SetDefault("main.timezone", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("alerting.pollinterval", DefaultPollInterval.String())
	v.SetDefault("alerting.cooldownwindow", DefaultCooldownWindow.String())
	v.SetDefault("alerting.toastduration", DefaultToastDuration.String())
	v.SetDefault("alerting.toastremovaldelay", DefaultToastRemovalDelay.String())
	v.SetDefault("alerting.toasttickinterval", DefaultToastTickInterval.String())
	v.SetDefault("alerting.notificationcapacity", DefaultNotificationCapacity)
	v.SetDefault("alerting.audioenabled", true)
	v.SetDefault("alerting.autohideenabled", true)
	v.SetDefault("alerting.rulettl", DefaultRuleTTL.String())
	v.SetDefault("alerting.rulesource", RuleSourceCollector)

	v.SetDefault("collector.baseurl", "http://localhost:3001")
	v.SetDefault("collector.token", "")
	v.SetDefault("collector.timeout", "10s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "alertd.db")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "devices/+/data")
	v.SetDefault("mqtt.clientid", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("audio.enabled", false)
	v.SetDefault("audio.samplerate", DefaultSampleRate)

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.urls", []string{})
	v.SetDefault("push.timeout", "10s")

	v.SetDefault("webserver.listen", ":8090")
	v.SetDefault("webserver.readingsrate", 5.0)
	v.SetDefault("webserver.readingsburst", 10)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}
