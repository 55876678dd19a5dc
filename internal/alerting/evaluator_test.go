package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/sensor"
)

func TestEvaluate_ThresholdAndSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rule     entities.AlertRule
		value    float64
		want     bool
		severity notification.Severity
	}{
		{"above critical", aboveRule(1, "dev-1", "1", 100), 151, true, notification.SeverityCritical},
		{"above high", aboveRule(1, "dev-1", "1", 100), 120, true, notification.SeverityHigh},
		{"above at factor boundary", aboveRule(1, "dev-1", "1", 100), 150, true, notification.SeverityHigh},
		{"above equal is not crossed", aboveRule(1, "dev-1", "1", 100), 100, false, 0},
		{"above under", aboveRule(1, "dev-1", "1", 100), 99.9, false, 0},
		{"below critical", belowRule(1, "dev-1", "1", 10), 4, true, notification.SeverityCritical},
		{"below high", belowRule(1, "dev-1", "1", 10), 8, true, notification.SeverityHigh},
		{"below equal is not crossed", belowRule(1, "dev-1", "1", 10), 10, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Evaluate(sht20Reading("dev-1", tt.value), []entities.AlertRule{tt.rule})
			if !tt.want {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.severity, got[0].Severity)
			assert.InDelta(t, tt.value, got[0].Value, 1e-9)
			assert.Equal(t, "SHT20_CH1", got[0].Channel)
		})
	}
}

func TestEvaluate_NonNumericValueIsSkipped(t *testing.T) {
	t.Parallel()

	reading := sht20Reading("dev-1", 0)
	reading.Sensors[0].Values[0] = sensor.Text("N/A")

	assert.NotPanics(t, func() {
		assert.Empty(t, Evaluate(reading, []entities.AlertRule{aboveRule(1, "dev-1", "1", 35)}))
	})
}

func TestEvaluate_SkipsInactiveRulesAndChannels(t *testing.T) {
	t.Parallel()

	inactive := aboveRule(1, "dev-1", "1", 35)
	inactive.IsActive = false
	assert.Empty(t, Evaluate(sht20Reading("dev-1", 40), []entities.AlertRule{inactive}))

	reading := sht20Reading("dev-1", 40)
	reading.Sensors[0].Active = false
	assert.Empty(t, Evaluate(reading, []entities.AlertRule{aboveRule(1, "dev-1", "1", 35)}))
}

func TestEvaluate_TypeMatchUsesFirstActiveChannel(t *testing.T) {
	t.Parallel()

	reading := &sensor.Reading{
		DeviceID: "dev-1",
		Sensors: []sensor.Channel{
			{Name: "SHT20_CH1", Type: "1", Active: false, Values: []sensor.Value{sensor.Number(90)}},
			{Name: "SHT20_CH2", Type: "1", Active: true, Values: []sensor.Value{sensor.Number(20)}},
			{Name: "SHT20_CH3", Type: "1", Active: true, Values: []sensor.Value{sensor.Number(90)}},
		},
	}

	got := Evaluate(reading, []entities.AlertRule{aboveRule(1, "dev-1", "1", 35)})
	assert.Empty(t, got, "only the first active channel of the type is checked")
}

func TestEvaluate_NamedRuleWithValueIndex(t *testing.T) {
	t.Parallel()

	rule := aboveRule(7, "dev-1", "1", 50)
	rule.SensorName = "SHT20_CH1"
	rule.ValueIndex = intPtr(1)

	got := Evaluate(sht20Reading("dev-1", 20), []entities.AlertRule{rule})
	require.Len(t, got, 1)
	assert.InDelta(t, 55.0, got[0].Value, 1e-9)
	assert.Equal(t, "SHT20_CH1 value 2", got[0].Label)
	assert.Equal(t, uint(7), got[0].Rule.ID)
}

func TestEvaluate_MissingValueOrChannel(t *testing.T) {
	t.Parallel()

	outOfRange := aboveRule(1, "dev-1", "1", 0)
	outOfRange.ValueIndex = intPtr(5)

	unknownName := aboveRule(2, "dev-1", "1", 0)
	unknownName.SensorName = "SHT20_CH9"

	otherType := aboveRule(3, "dev-1", "4", 0)

	badCondition := aboveRule(4, "dev-1", "1", 0)
	badCondition.ConditionType = "equals"

	rules := []entities.AlertRule{outOfRange, unknownName, otherType, badCondition}
	assert.Empty(t, Evaluate(sht20Reading("dev-1", 20), rules))
	assert.Nil(t, Evaluate(nil, rules))
}

func TestEvaluate_PreservesRuleOrder(t *testing.T) {
	t.Parallel()

	humidity := aboveRule(2, "dev-1", "1", 50)
	humidity.ValueIndex = intPtr(1)
	rules := []entities.AlertRule{aboveRule(1, "dev-1", "1", 10), humidity}

	got := Evaluate(sht20Reading("dev-1", 20), rules)
	require.Len(t, got, 2)
	assert.Equal(t, uint(1), got[0].Rule.ID)
	assert.Equal(t, uint(2), got[1].Rule.ID)
	assert.Equal(t, "SHT20_CH1", got[1].Label, "type-matched rules are labelled by channel")
}

func TestAlertMessage(t *testing.T) {
	t.Parallel()

	v := &Violation{Rule: aboveRule(1, "dev-1", "1", 35), Value: 36.2, Label: "SHT20_CH1"}
	assert.Equal(t, "SHT20_CH1 reading of 36.20 is above the threshold 35", alertMessage(v))

	v = &Violation{Rule: belowRule(1, "dev-1", "1", 10.5), Value: 3, Label: "SHT20_CH1 value 2"}
	assert.Equal(t, "SHT20_CH1 value 2 reading of 3.00 is below the threshold 10.5", alertMessage(v))
	assert.Equal(t, TitleBelow, titleFor(v.Rule.ConditionType))
}
