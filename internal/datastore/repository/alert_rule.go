// Package repository provides gorm-backed access to the local rule store.
package repository

import (
	"context"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/errors"
)

// ErrAlertRuleNotFound is returned when a rule ID does not exist.
var ErrAlertRuleNotFound = errors.NewStd("alert rule not found")

// AlertRuleRepository handles alert rule CRUD.
type AlertRuleRepository interface {
	ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error)
	GetRule(ctx context.Context, id uint) (*entities.AlertRule, error)
	CreateRule(ctx context.Context, rule *entities.AlertRule) error
	UpdateRule(ctx context.Context, rule *entities.AlertRule) error
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, active bool) error

	// GetAlertRules returns every rule configured for a device, active or not.
	GetAlertRules(ctx context.Context, deviceID string) ([]entities.AlertRule, error)
	CountRules(ctx context.Context, deviceID string) (int64, error)
}

// AlertRuleFilter controls rule listing queries.
type AlertRuleFilter struct {
	DeviceID   string
	SensorType string
	Active     *bool
}
