// Package sensor defines sensor readings as the alert engine sees them and
// decodes the payloads devices and the dashboard API produce.
package sensor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Reading is one snapshot of every channel on a device.
type Reading struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Sensors   []Channel `json:"sensors"`
}

// Channel is one logical sensor channel, e.g. "SHT20_CH1".
type Channel struct {
	SensorID   int      `json:"sensor_id,omitempty"`
	Name       string   `json:"name"`
	Type       TypeTag  `json:"type"`
	Protocol   Protocol `json:"protocol,omitempty"`
	Channel    int      `json:"channel,omitempty"`
	Active     bool     `json:"active"`
	Values     []Value  `json:"values"`
	ValueNames []string `json:"value_names,omitempty"`
}

// Value returns values[i] and whether it exists.
func (c *Channel) Value(i int) (Value, bool) {
	if i < 0 || i >= len(c.Values) {
		return Value{}, false
	}
	return c.Values[i], true
}

// FindByName returns the channel with the exact name.
func (r *Reading) FindByName(name string) (*Channel, bool) {
	for i := range r.Sensors {
		if r.Sensors[i].Name == name {
			return &r.Sensors[i], true
		}
	}
	return nil, false
}

// FirstActiveOfType returns the first active channel with the given type tag.
func (r *Reading) FirstActiveOfType(tag string) (*Channel, bool) {
	for i := range r.Sensors {
		ch := &r.Sensors[i]
		if ch.Active && string(ch.Type) == tag {
			return ch, true
		}
	}
	return nil, false
}

// TypeTag identifies a sensor type. Devices send it as a number and rules
// store it as a string, so both JSON forms are accepted.
type TypeTag string

// UnmarshalJSON accepts a JSON number or string.
func (t *TypeTag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TypeTag(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = TypeTag(n.String())
	return nil
}

// Code returns the numeric type code, or TypeUnknown for non-numeric tags.
func (t TypeTag) Code() int {
	n, err := strconv.Atoi(string(t))
	if err != nil {
		return TypeUnknown
	}
	return n
}

// parseTimestamp accepts unix milliseconds, unix seconds, or RFC 3339.
// Empty input yields the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, true
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, true
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromUnix(n), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, false
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}, false
		}
		i = int64(f)
	}
	return fromUnix(i), true
}

// fromUnix treats values past 1e11 as milliseconds.
func fromUnix(n int64) time.Time {
	if n > 1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
