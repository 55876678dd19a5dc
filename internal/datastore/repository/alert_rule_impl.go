package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/errors"
)

// alertRuleRepository implements AlertRuleRepository.
type alertRuleRepository struct {
	db *gorm.DB
}

// NewAlertRuleRepository creates a new AlertRuleRepository.
func NewAlertRuleRepository(db *gorm.DB) AlertRuleRepository {
	return &alertRuleRepository{db: db}
}

// ListRules returns alert rules matching the given filter.
func (r *alertRuleRepository) ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error) {
	var rules []entities.AlertRule
	query := r.db.WithContext(ctx)

	if filter.DeviceID != "" {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.SensorType != "" {
		query = query.Where("sensor_type = ?", filter.SensorType)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	if err := query.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

// GetRule returns a single alert rule by ID.
// Returns ErrAlertRuleNotFound if the rule does not exist.
func (r *alertRuleRepository) GetRule(ctx context.Context, id uint) (*entities.AlertRule, error) {
	var rule entities.AlertRule
	if err := r.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertRuleNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule %d: %w", id, err)
	}
	return &rule, nil
}

// CreateRule validates and inserts a rule.
func (r *alertRuleRepository) CreateRule(ctx context.Context, rule *entities.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

// UpdateRule replaces all fields of an existing rule.
func (r *alertRuleRepository) UpdateRule(ctx context.Context, rule *entities.AlertRule) error {
	if rule.ID == 0 {
		return fmt.Errorf("failed to update alert rule: missing rule ID")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AlertRule
		if err := tx.First(&existing, rule.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertRuleNotFound
			}
			return fmt.Errorf("failed to load alert rule %d: %w", rule.ID, err)
		}
		// Select lists the columns so zero values such as is_active=false are written.
		err := tx.Model(&existing).
			Select("device_id", "sensor_name", "sensor_type", "value_index",
				"condition_type", "threshold_value", "is_active").
			Updates(rule).Error
		if err != nil {
			return fmt.Errorf("failed to update alert rule %d: %w", rule.ID, err)
		}
		rule.CreatedAt = existing.CreatedAt
		return nil
	})
}

// DeleteRule deletes an alert rule.
func (r *alertRuleRepository) DeleteRule(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.AlertRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert rule %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

// ToggleRule activates or deactivates an alert rule.
func (r *alertRuleRepository) ToggleRule(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle alert rule %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

// GetAlertRules returns all rules of a device in ID order.
func (r *alertRuleRepository) GetAlertRules(ctx context.Context, deviceID string) ([]entities.AlertRule, error) {
	return r.ListRules(ctx, AlertRuleFilter{DeviceID: deviceID})
}

// CountRules returns the number of rules configured for a device.
func (r *alertRuleRepository) CountRules(ctx context.Context, deviceID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("device_id = ?", deviceID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count alert rules: %w", err)
	}
	return count, nil
}
