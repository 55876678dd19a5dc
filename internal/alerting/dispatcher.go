package alerting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
)

// deliverViolation turns a violation into a sensor alert.
func (e *Engine) deliverViolation(ctx context.Context, dev Device, v *Violation, now time.Time, cfg EngineConfig) {
	current := v.Value
	threshold := v.Rule.ThresholdValue
	content := notification.Content{
		Title:          titleFor(v.Rule.ConditionType),
		Message:        alertMessage(v),
		Kind:           notification.KindSensorAlert,
		Severity:       v.Severity,
		DeviceName:     dev.DisplayName(),
		SensorName:     v.Channel,
		CurrentValue:   &current,
		ThresholdValue: &threshold,
	}
	n := e.deliver(ctx, content, now, cfg)

	e.log.Info("alert delivered",
		logger.String("id", n.ID),
		logger.String("device_id", dev.ID),
		logger.String("sensor", v.Channel),
		logger.String("severity", v.Severity.String()),
		logger.Float64("value", v.Value),
		logger.Float64("threshold", threshold))
}

// deliver appends the notification to the log, enqueues a toast with the
// same id and content, and hands the notification to the side channels.
func (e *Engine) deliver(ctx context.Context, content notification.Content, now time.Time, cfg EngineConfig) *notification.Notification {
	n := notification.NewNotification(content, now)
	if e.store.Append(n) {
		e.log.Debug("oldest notification evicted", logger.Int("capacity", cfg.NotificationCapacity))
	}

	autoHide, duration := toastTiming(content.Severity, cfg)
	e.toasts.Enqueue(notification.NewToast(n.ID, content, now, autoHide, duration))

	e.metrics.RecordDelivery(string(content.Kind), content.Severity.String())
	if e.side != nil {
		e.side.Dispatch(ctx, *n)
	}
	return n
}

// toastTiming returns whether a toast hides itself and after how long.
// Critical toasts stay until dismissed.
func toastTiming(sev notification.Severity, cfg EngineConfig) (bool, time.Duration) {
	if sev == notification.SeverityCritical {
		return false, 0
	}
	return cfg.AutoHideEnabled, cfg.ToastDuration
}

func titleFor(condition string) string {
	if condition == entities.ConditionBelow {
		return TitleBelow
	}
	return TitleAbove
}

// alertMessage renders e.g. "SHT20_CH1 value 1 reading of 36.20 is above the
// threshold 35".
func alertMessage(v *Violation) string {
	return fmt.Sprintf("%s reading of %.2f is %s the threshold %s",
		v.Label, v.Value, v.Rule.ConditionType,
		strconv.FormatFloat(v.Rule.ThresholdValue, 'f', -1, 64))
}

func severityForKind(kind notification.Kind) notification.Severity {
	switch kind {
	case notification.KindSystemError, notification.KindError:
		return notification.SeverityHigh
	case notification.KindWarning:
		return notification.SeverityMedium
	case notification.KindSensorAlert:
		return notification.SeverityHigh
	default:
		return notification.SeverityLow
	}
}
