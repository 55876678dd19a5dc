package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sensordash/alertd/internal/errors"
)

// expandedReading is the JSON shape served by the dashboard API.
type expandedReading struct {
	DeviceID  json.RawMessage `json:"device_id"`
	Timestamp json.RawMessage `json:"timestamp"`
	Sensors   []Channel       `json:"sensors"`
}

// compactPayload is the shape devices publish over MQTT:
// {"d":..,"t":..,"c":..,"p":..,"s":[[sensorId,type,slaveId,channel,raw...],...]}.
type compactPayload struct {
	D json.RawMessage `json:"d"`
	T json.RawMessage `json:"t"`
	C int             `json:"c"`
	S [][]json.Number `json:"s"`
}

// DecodeJSON decodes either the expanded or the compact reading format.
// now stamps readings that carry no timestamp.
func DecodeJSON(data []byte, now time.Time) (*Reading, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, malformed("payload is not a JSON object", err)
	}

	if _, compact := probe["s"]; compact {
		var p compactPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, malformed("invalid compact payload", err)
		}
		return decodeCompact(&p, now)
	}

	var e expandedReading
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, malformed("invalid reading", err)
	}
	ts, ok := parseTimestamp(e.Timestamp)
	if !ok {
		return nil, malformed("invalid timestamp", nil)
	}
	if ts.IsZero() {
		ts = now
	}
	return &Reading{
		DeviceID:  rawString(e.DeviceID),
		Timestamp: ts,
		Sensors:   e.Sensors,
	}, nil
}

func decodeCompact(p *compactPayload, now time.Time) (*Reading, error) {
	ts, ok := parseTimestamp(p.T)
	if !ok {
		return nil, malformed("invalid compact timestamp", nil)
	}
	if ts.IsZero() {
		ts = now
	}

	r := &Reading{
		DeviceID:  rawString(p.D),
		Timestamp: ts,
		Sensors:   make([]Channel, 0, len(p.S)),
	}
	for i, row := range p.S {
		if len(row) < 4 {
			return nil, malformed(fmt.Sprintf("sensor row %d has %d fields, want at least 4", i, len(row)), nil)
		}
		head := make([]int, 4)
		for j := range head {
			n, err := row[j].Int64()
			if err != nil {
				return nil, malformed(fmt.Sprintf("sensor row %d field %d is not an integer", i, j), err)
			}
			head[j] = int(n)
		}
		raw := make([]float64, 0, len(row)-4)
		for j, num := range row[4:] {
			f, err := num.Float64()
			if err != nil {
				return nil, malformed(fmt.Sprintf("sensor row %d value %d is not a number", i, j), err)
			}
			raw = append(raw, f)
		}

		info := LookupType(head[1])
		values, names := convertRaw(head[1], raw)
		r.Sensors = append(r.Sensors, Channel{
			SensorID:   head[0],
			Name:       info.Name + "_CH" + strconv.Itoa(head[3]),
			Type:       TypeTag(info.Tag()),
			Protocol:   info.Protocol,
			Channel:    head[3],
			Active:     true,
			Values:     values,
			ValueNames: names,
		})
	}
	return r, nil
}

func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func malformed(msg string, cause error) error {
	var err error
	if cause != nil {
		err = fmt.Errorf("%s: %w", msg, cause)
	} else {
		err = fmt.Errorf("%s", msg)
	}
	return errors.New(err).
		Component("sensor").
		Category(errors.CategoryValidation).
		Context("operation", "decode_reading").
		Build()
}

// convertRaw applies per-type scaling to the raw register values.
func convertRaw(code int, raw []float64) ([]Value, []string) {
	at := func(i int) float64 {
		if i < len(raw) {
			return raw[i]
		}
		return math.NaN()
	}
	info := LookupType(code)

	switch code {
	case TypeSHT20, TypeSHT20Modbus, TypeADS1115:
		return numbers(at(0)/100, at(1)/100), info.ValueNames
	case TypeTSL2591:
		return numbers(at(0) / 10), info.ValueNames
	case TypeSCD30:
		return numbers(at(0)), info.ValueNames
	case TypeDS18B20:
		return numbers(at(0) / 100), info.ValueNames
	case TypeWindDirection:
		gear, degree := at(0), at(1)
		return []Value{Number(gear), Number(degree), Text(windDirection(gear, degree))}, info.ValueNames
	case TypeWindSpeed:
		speed := at(0) / 10
		scale, condition := windScale(speed)
		return []Value{Number(speed), Text(scale), Text(condition)}, info.ValueNames
	case TypePrecipitation:
		return precipitation(int(at(0)), int(at(1))), info.ValueNames
	case TypeSoil:
		return soil(int(at(0)), int(at(1))), info.ValueNames
	}

	if code >= TypeModbusTempHum {
		return numbers(at(0)/100, at(1)/100), []string{"value1", "value2"}
	}
	return numbers(raw...), []string{"value1", "value2"}
}

func numbers(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = Number(f)
	}
	return out
}

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func windDirection(gear, degree float64) string {
	if gear >= 0 && gear <= 7 && gear == math.Trunc(gear) {
		return compassPoints[int(gear)]
	}
	if math.IsNaN(degree) || degree < 0 {
		return "N"
	}
	idx := int(math.Floor((math.Mod(degree, 360)+22.5)/45)) % len(compassPoints)
	return compassPoints[idx]
}

func windScale(ms float64) (scale, condition string) {
	switch {
	case ms == 0:
		return "calm", "still air"
	case ms < 0.2:
		return "threshold", "direction hard to detect"
	case ms < 1.5:
		return "light air", "smoke drift shows direction"
	case ms < 3.3:
		return "light breeze", "wind felt on face"
	case ms < 5.4:
		return "gentle breeze", "leaves in motion"
	case ms < 7.9:
		return "moderate breeze", "small branches move"
	case ms < 10.7:
		return "fresh breeze", "large branches move"
	case ms < 13.8:
		return "strong breeze", "whole trees move"
	case ms < 17.1:
		return "near gale", "walking is difficult"
	default:
		return "gale", "damage possible"
	}
}

func precipitation(v1, v2 int) []Value {
	status := (v1 >> 12) & 0x0F
	moisture := v1 & 0x0FFF
	temperature := ((v2 >> 8) & 0xFF) - 40
	humidity := v2 & 0xFF

	var statusText string
	switch status {
	case 0:
		statusText = "dry"
	case 1:
		statusText = "rain"
	case 2:
		statusText = "snow"
	default:
		statusText = "unknown"
	}

	var intensity string
	switch {
	case status > 0 && moisture > 3000:
		intensity = "heavy"
	case status > 0 && moisture > 1500:
		intensity = "moderate"
	case status > 0 && moisture > 500:
		intensity = "light"
	case status > 0:
		intensity = "trace"
	case moisture > 500:
		intensity = "residual moisture"
	default:
		intensity = "dry"
	}

	var tempStatus string
	switch {
	case temperature >= 30:
		tempStatus = "high"
	case temperature >= 20:
		tempStatus = "normal"
	case temperature >= 10:
		tempStatus = "low"
	case temperature >= 0:
		tempStatus = "very low"
	default:
		tempStatus = "freezing risk"
	}

	return []Value{
		Number(float64(status)), Text(statusText),
		Number(float64(moisture)), Text(intensity),
		Number(float64(temperature)), Number(float64(humidity)),
		Text(tempStatus),
	}
}

func soil(v1, v2 int) []Value {
	humidity := (v1 & 0xFF00) >> 8
	temperature := (v1 & 0x00FF) - 40
	ec := (v2 & 0xFF00) >> 8
	ph := float64(v2&0x00FF) / 10

	var moistureText string
	switch {
	case humidity >= 70:
		moistureText = "adequate"
	case humidity >= 40:
		moistureText = "moderate"
	case humidity >= 20:
		moistureText = "dry"
	default:
		moistureText = "very dry"
	}

	var phText string
	switch {
	case ph >= 6.0 && ph <= 7.5:
		phText = "neutral"
	case ph < 6.0:
		phText = "acidic"
	default:
		phText = "alkaline"
	}

	var ecText string
	switch {
	case ec <= 20:
		ecText = "very low"
	case ec <= 50:
		ecText = "low"
	case ec <= 150:
		ecText = "normal"
	default:
		ecText = "high"
	}

	return []Value{
		Number(float64(humidity)), Number(float64(temperature)),
		Number(float64(ec)), Number(ph),
		Text(moistureText), Text(phText), Text(ecText),
	}
}
