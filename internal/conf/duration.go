package conf

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that serializes as a string such as "30s".
// Bare numbers are read as milliseconds, the unit the dashboard uses for
// toast durations and removal delays.
type Duration time.Duration

// Std converts Duration to a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Milliseconds returns the duration as integer milliseconds.
func (d Duration) Milliseconds() int64 {
	return time.Duration(d).Milliseconds()
}

func fromMillis(ms float64) Duration {
	return Duration(time.Duration(ms * float64(time.Millisecond)))
}

// MarshalJSON outputs the duration as a JSON string like "8s".
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string, a number of milliseconds, or null.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", value, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = fromMillis(value)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration value: %v (type %T)", v, v)
	}
	return nil
}

// MarshalYAML outputs the duration as a human-readable string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "30s" style strings or bare integer milliseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar duration value, got %v", value.Kind)
	}
	if parsed, err := time.ParseDuration(value.Value); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if ms, err := strconv.ParseFloat(value.Value, 64); err == nil {
		*d = fromMillis(ms)
		return nil
	}
	return fmt.Errorf("invalid duration %q: expected format like \"30s\" or a number of milliseconds", value.Value)
}

var durationType = reflect.TypeFor[Duration]()

// DurationDecodeHook converts config values into Duration for viper. Strings
// are parsed with time.ParseDuration and numbers are milliseconds. The
// standard time.Duration and comma-separated slice hooks are kept.
func DurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(func(_, to reflect.Type, data any) (any, error) {
			if to != durationType {
				return data, nil
			}

			switch v := data.(type) {
			case string:
				if parsed, err := time.ParseDuration(v); err == nil {
					return Duration(parsed), nil
				}
				ms, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid duration %q", v)
				}
				return fromMillis(ms), nil
			case int:
				return fromMillis(float64(v)), nil
			case int64:
				return fromMillis(float64(v)), nil
			case float64:
				return fromMillis(v), nil
			case time.Duration:
				return Duration(v), nil
			default:
				return data, nil
			}
		}),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
