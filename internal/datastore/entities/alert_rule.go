// Package entities holds the gorm models of the local rule store.
package entities

import "time"

// Rule conditions.
const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

// AlertRule is a user-defined threshold on one sensor of one device.
//
// A rule targets a channel by SensorName when set, otherwise by SensorType.
// ValueIndex selects which of the channel's values is compared; nil means
// the first value.
type AlertRule struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DeviceID       string    `gorm:"size:100;not null;index" json:"device_id"`
	SensorName     string    `gorm:"size:100;default:''" json:"sensor_name"`
	SensorType     string    `gorm:"size:20;default:'';index" json:"sensor_type"`
	ValueIndex     *int      `json:"value_index"`
	ConditionType  string    `gorm:"size:10;not null" json:"condition_type"`
	ThresholdValue float64   `gorm:"not null" json:"threshold_value"`
	IsActive       bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertRule) TableName() string {
	return "alert_rules"
}

// Target returns SensorName when set and SensorType otherwise.
func (r *AlertRule) Target() string {
	if r.SensorName != "" {
		return r.SensorName
	}
	return r.SensorType
}

// Index returns the value index the rule reads, defaulting to 0.
func (r *AlertRule) Index() int {
	if r.ValueIndex == nil {
		return 0
	}
	return *r.ValueIndex
}

// Validate checks the fields every rule needs regardless of its source.
func (r *AlertRule) Validate() error {
	switch {
	case r.DeviceID == "":
		return errInvalid("device_id is required")
	case r.SensorName == "" && r.SensorType == "":
		return errInvalid("sensor_name or sensor_type is required")
	case r.ConditionType != ConditionAbove && r.ConditionType != ConditionBelow:
		return errInvalid("condition_type must be above or below")
	case r.ValueIndex != nil && *r.ValueIndex < 0:
		return errInvalid("value_index must not be negative")
	}
	return nil
}
