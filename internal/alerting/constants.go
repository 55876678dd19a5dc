// Package alerting evaluates sensor readings against threshold rules and
// delivers the resulting alerts to the notification log, the toast queue and
// the side channels.
package alerting

import "github.com/sensordash/alertd/internal/notification"

// Alert titles by rule condition.
const (
	TitleAbove = "Sensor threshold exceeded"
	TitleBelow = "Sensor threshold not met"
)

// Reading sources, used in logs and metrics.
const (
	SourcePoll = "poll"
	SourceMQTT = "mqtt"
	SourceAPI  = "api"
)

// Severity multipliers applied to the rule threshold.
const (
	criticalAboveFactor = 1.5
	criticalBelowFactor = 0.5
)

// unhealthyKinds keep the health signal red while any of them is unread.
var unhealthyKinds = []notification.Kind{
	notification.KindWarning,
	notification.KindError,
	notification.KindSystemError,
}
