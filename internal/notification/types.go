// Package notification holds the two delivery surfaces of the alert engine:
// the readable notification log and the ephemeral toast queue.
package notification

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sensordash/alertd/internal/errors"
)

// Kind classifies a notification.
type Kind string

const (
	KindSensorAlert    Kind = "sensor_alert"
	KindSensorRecovery Kind = "sensor_recovery"
	KindSystemError    Kind = "system_error"
	KindWarning        Kind = "warning"
	KindError          Kind = "error"
	KindInfo           Kind = "info"
	KindSuccess        Kind = "success"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSensorAlert, KindSensorRecovery, KindSystemError,
		KindWarning, KindError, KindInfo, KindSuccess:
		return true
	default:
		return false
	}
}

// Severity is the urgency of a notification. The zero value is SeverityLow.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a case-insensitive name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityLow, errors.Newf("unknown severity %q", name).
		Component("notification").
		Category(errors.CategoryValidation).
		Build()
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Content is what a notification and its toast have in common.
type Content struct {
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Kind           Kind     `json:"type"`
	Severity       Severity `json:"severity"`
	DeviceName     string   `json:"deviceName,omitempty"`
	SensorName     string   `json:"sensorName,omitempty"`
	CurrentValue   *float64 `json:"currentValue,omitempty"`
	ThresholdValue *float64 `json:"thresholdValue,omitempty"`
}

// Notification is an entry of the readable log.
type Notification struct {
	ID string `json:"id"`
	Content
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"isRead"`
}

// NewNotification creates an unread notification stamped with now.
func NewNotification(content Content, now time.Time) *Notification {
	return &Notification{
		ID:        NewID(now),
		Content:   content,
		Timestamp: now,
	}
}

// NewID returns an identifier that sorts by creation time and is unique
// across the process: unix milliseconds followed by a random suffix.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
