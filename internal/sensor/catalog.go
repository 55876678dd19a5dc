package sensor

import "strconv"

// Protocol names the bus a sensor is attached to.
type Protocol string

const (
	ProtocolI2C     Protocol = "i2c"
	ProtocolModbus  Protocol = "modbus"
	ProtocolAnalog  Protocol = "analog"
	ProtocolDigital Protocol = "digital"
	ProtocolUnknown Protocol = "unknown"
)

// TypeInfo describes a sensor type code reported by the device firmware.
type TypeInfo struct {
	Code       int      `json:"code"`
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Protocol   Protocol `json:"protocol"`
	ValueNames []string `json:"valueNames"`
	Units      []string `json:"units"`
}

// Tag is the type tag rules use to match channels, e.g. "1" for SHT20.
func (t TypeInfo) Tag() string { return strconv.Itoa(t.Code) }

// Sensor type codes.
const (
	TypeUnknown        = 0
	TypeSHT20          = 1
	TypeTSL2591        = 2
	TypeADS1115        = 3
	TypeSCD30          = 4
	TypeDS18B20        = 5
	TypeModbusTempHum  = 11
	TypeModbusPressure = 12
	TypeModbusFlow     = 13
	TypeModbusRelay    = 14
	TypeModbusEnergy   = 15
	TypeWindDirection  = 16
	TypeWindSpeed      = 17
	TypePrecipitation  = 18
	TypeSoil           = 19
	TypeSHT20Modbus    = 21
)

var catalog = map[int]TypeInfo{
	TypeUnknown:        {TypeUnknown, "UNKNOWN", "Unknown", ProtocolUnknown, nil, nil},
	TypeSHT20:          {TypeSHT20, "SHT20", "Temperature/Humidity", ProtocolI2C, []string{"temperature", "humidity"}, []string{"°C", "%"}},
	TypeTSL2591:        {TypeTSL2591, "TSL2591", "Light", ProtocolI2C, []string{"light_level"}, []string{"lux"}},
	TypeADS1115:        {TypeADS1115, "ADS1115", "Nutrient pH/EC", ProtocolI2C, []string{"ph", "ec"}, []string{"pH", "dS/m"}},
	TypeSCD30:          {TypeSCD30, "SCD30", "CO2", ProtocolI2C, []string{"co2_ppm"}, []string{"ppm"}},
	TypeDS18B20:        {TypeDS18B20, "DS18B20", "Temperature", ProtocolDigital, []string{"temperature"}, []string{"°C"}},
	TypeModbusTempHum:  {TypeModbusTempHum, "MODBUS_TH", "Modbus Temperature/Humidity", ProtocolModbus, []string{"temperature", "humidity"}, []string{"°C", "%"}},
	TypeModbusPressure: {TypeModbusPressure, "MODBUS_PRESSURE", "Modbus Pressure", ProtocolModbus, []string{"pressure"}, []string{"bar"}},
	TypeModbusFlow:     {TypeModbusFlow, "MODBUS_FLOW", "Modbus Flow", ProtocolModbus, []string{"flow_rate"}, []string{"L/min"}},
	TypeModbusRelay:    {TypeModbusRelay, "MODBUS_RELAY", "Modbus Relay", ProtocolModbus, []string{"status"}, []string{""}},
	TypeModbusEnergy:   {TypeModbusEnergy, "MODBUS_ENERGY", "Modbus Energy Meter", ProtocolModbus, []string{"voltage", "current"}, []string{"V", "A"}},
	TypeWindDirection:  {TypeWindDirection, "WIND_DIRECTION", "Wind Direction", ProtocolModbus, []string{"gear_direction", "degree_direction", "direction_text"}, []string{"", "°", ""}},
	TypeWindSpeed:      {TypeWindSpeed, "WIND_SPEED", "Wind Speed", ProtocolModbus, []string{"wind_speed_ms", "wind_scale", "wind_condition"}, []string{"m/s", "", ""}},
	TypePrecipitation: {TypePrecipitation, "PRECIPITATION", "Rain/Snow", ProtocolModbus,
		[]string{"precip_status", "precip_status_text", "moisture_level", "moisture_intensity", "temperature", "humidity", "temp_status"},
		[]string{"", "", "", "", "°C", "%", ""}},
	TypeSoil: {TypeSoil, "SOIL", "Soil", ProtocolModbus,
		[]string{"soil_humidity", "soil_temperature", "soil_ec", "soil_ph", "moisture_status", "ph_status", "ec_status"},
		[]string{"%", "°C", "dS/m", "pH", "", "", ""}},
	TypeSHT20Modbus: {TypeSHT20Modbus, "SHT20", "Temperature/Humidity (Modbus)", ProtocolModbus, []string{"temperature", "humidity"}, []string{"°C", "%"}},
}

// LookupType returns the catalog entry for code, or the unknown entry.
func LookupType(code int) TypeInfo {
	if info, ok := catalog[code]; ok {
		return info
	}
	unknown := catalog[TypeUnknown]
	unknown.Code = code
	return unknown
}

// Types returns every known sensor type except the unknown placeholder,
// ordered by code.
func Types() []TypeInfo {
	out := make([]TypeInfo, 0, len(catalog)-1)
	for code := 1; code <= TypeSHT20Modbus; code++ {
		if info, ok := catalog[code]; ok {
			out = append(out, info)
		}
	}
	return out
}
