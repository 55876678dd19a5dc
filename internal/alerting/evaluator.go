package alerting

import (
	"strconv"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/sensor"
)

// Violation is a rule whose threshold a reading crossed.
type Violation struct {
	Rule     entities.AlertRule
	Channel  string
	Value    float64
	Label    string
	Severity notification.Severity
}

// Evaluate checks every active rule against the reading and returns the
// violations in rule order. It has no side effects.
func Evaluate(reading *sensor.Reading, rules []entities.AlertRule) []Violation {
	if reading == nil {
		return nil
	}

	var out []Violation
	for i := range rules {
		if v, ok := evaluateRule(reading, &rules[i]); ok {
			out = append(out, v)
		}
	}
	return out
}

func evaluateRule(reading *sensor.Reading, rule *entities.AlertRule) (Violation, bool) {
	if !rule.IsActive {
		return Violation{}, false
	}

	ch := matchChannel(reading, rule)
	if ch == nil || !ch.Active {
		return Violation{}, false
	}

	raw, ok := ch.Value(rule.Index())
	if !ok {
		return Violation{}, false
	}
	value, ok := raw.Float()
	if !ok {
		return Violation{}, false
	}

	if !crossed(rule.ConditionType, value, rule.ThresholdValue) {
		return Violation{}, false
	}

	return Violation{
		Rule:     *rule,
		Channel:  ch.Name,
		Value:    value,
		Label:    label(ch, rule),
		Severity: SeverityFor(rule.ConditionType, value, rule.ThresholdValue),
	}, true
}

// matchChannel finds the channel a rule watches: the channel with the rule's
// sensor name when one is set, otherwise the first active channel whose type
// tag equals the rule's sensor type.
func matchChannel(reading *sensor.Reading, rule *entities.AlertRule) *sensor.Channel {
	var (
		ch *sensor.Channel
		ok bool
	)
	if rule.SensorName != "" {
		ch, ok = reading.FindByName(rule.SensorName)
	} else {
		ch, ok = reading.FirstActiveOfType(rule.SensorType)
	}
	if !ok {
		return nil
	}
	return ch
}

func crossed(condition string, value, threshold float64) bool {
	switch condition {
	case entities.ConditionAbove:
		return value > threshold
	case entities.ConditionBelow:
		return value < threshold
	default:
		return false
	}
}

// SeverityFor grades a violation: critical once the value is past one and a
// half times the threshold (above) or under half of it (below), high
// otherwise.
func SeverityFor(condition string, value, threshold float64) notification.Severity {
	switch condition {
	case entities.ConditionAbove:
		if value > threshold*criticalAboveFactor {
			return notification.SeverityCritical
		}
	case entities.ConditionBelow:
		if value < threshold*criticalBelowFactor {
			return notification.SeverityCritical
		}
	}
	return notification.SeverityHigh
}

func label(ch *sensor.Channel, rule *entities.AlertRule) string {
	if rule.SensorName != "" && rule.ValueIndex != nil {
		return ch.Name + " value " + strconv.Itoa(*rule.ValueIndex+1)
	}
	return ch.Name
}
