package alerting

import (
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/sensor"
)

// Schema describes what a rule can target, for the rule editor.
type Schema struct {
	SensorTypes []SensorTypeSchema `json:"sensorTypes"`
	Conditions  []ConditionSchema  `json:"conditions"`
	Severities  []SeveritySchema   `json:"severities"`
}

// SensorTypeSchema describes a sensor type and the values a rule can watch.
type SensorTypeSchema struct {
	Type     string        `json:"type"` // type tag stored in AlertRule.SensorType
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Protocol string        `json:"protocol"`
	Values   []ValueSchema `json:"values"`
}

// ValueSchema describes one value slot of a sensor type.
type ValueSchema struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Unit  string `json:"unit"`
}

// ConditionSchema describes a rule condition for the UI.
type ConditionSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Title string `json:"title"`
}

// SeveritySchema documents how a violation is graded.
type SeveritySchema struct {
	Condition string  `json:"condition"`
	Factor    float64 `json:"factor"`
	Severity  string  `json:"severity"`
}

// GetSchema returns the rule schema for the UI.
func GetSchema() Schema {
	types := sensor.Types()
	out := Schema{
		SensorTypes: make([]SensorTypeSchema, 0, len(types)),
		Conditions: []ConditionSchema{
			{Name: entities.ConditionAbove, Label: "above", Title: TitleAbove},
			{Name: entities.ConditionBelow, Label: "below", Title: TitleBelow},
		},
		Severities: []SeveritySchema{
			{Condition: entities.ConditionAbove, Factor: criticalAboveFactor, Severity: "critical"},
			{Condition: entities.ConditionBelow, Factor: criticalBelowFactor, Severity: "critical"},
		},
	}
	for _, t := range types {
		out.SensorTypes = append(out.SensorTypes, SensorTypeSchema{
			Type:     t.Tag(),
			Name:     t.Name,
			Label:    t.Label,
			Protocol: string(t.Protocol),
			Values:   valueSchemas(t),
		})
	}
	return out
}

func valueSchemas(t sensor.TypeInfo) []ValueSchema {
	values := make([]ValueSchema, len(t.ValueNames))
	for i, name := range t.ValueNames {
		values[i] = ValueSchema{Index: i, Name: name}
		if i < len(t.Units) {
			values[i].Unit = t.Units[i]
		}
	}
	return values
}
