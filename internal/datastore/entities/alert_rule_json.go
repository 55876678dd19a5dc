package entities

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/sensordash/alertd/internal/errors"
)

// UnmarshalJSON decodes rules from the dashboard API, whose SQL backend
// returns decimals as strings, type codes as numbers and flags as 0/1.
func (r *AlertRule) UnmarshalJSON(b []byte) error {
	type plain AlertRule
	var wire struct {
		plain
		SensorName     json.RawMessage `json:"sensor_name"`
		SensorType     json.RawMessage `json:"sensor_type"`
		ValueIndex     json.RawMessage `json:"value_index"`
		ThresholdValue json.RawMessage `json:"threshold_value"`
		IsActive       json.RawMessage `json:"is_active"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	out := AlertRule(wire.plain)
	var err error
	if out.SensorName, err = looseString(wire.SensorName); err != nil {
		return errInvalid("sensor_name: " + err.Error())
	}
	if out.SensorType, err = looseString(wire.SensorType); err != nil {
		return errInvalid("sensor_type: " + err.Error())
	}
	if idx, ok, err := looseNumber(wire.ValueIndex); err != nil {
		return errInvalid("value_index: " + err.Error())
	} else if ok {
		i := int(idx)
		out.ValueIndex = &i
	}
	if v, ok, err := looseNumber(wire.ThresholdValue); err != nil {
		return errInvalid("threshold_value: " + err.Error())
	} else if ok {
		out.ThresholdValue = v
	}
	if out.IsActive, err = looseBool(wire.IsActive); err != nil {
		return errInvalid("is_active: " + err.Error())
	}

	*r = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func looseNumber(raw json.RawMessage) (float64, bool, error) {
	if isNull(raw) {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, err
	}
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}

func looseBool(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	f, ok, err := looseNumber(raw)
	if err != nil {
		return false, err
	}
	return ok && f != 0, nil
}

func errInvalid(msg string) error {
	return errors.Newf("invalid alert rule: %s", msg).
		Component("datastore").
		Category(errors.CategoryValidation).
		Build()
}
