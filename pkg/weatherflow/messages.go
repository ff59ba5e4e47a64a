package weatherflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// message types of the UDP v171 broadcast
const (
	MSG_EVT_PRECIP    = "evt_precip"
	MSG_EVT_STRIKE    = "evt_strike"
	MSG_RAPID_WIND    = "rapid_wind"
	MSG_OBS_AIR       = "obs_air"
	MSG_OBS_SKY       = "obs_sky"
	MSG_OBS_ST        = "obs_st"
	MSG_DEVICE_STATUS = "device_status"
	MSG_HUB_STATUS    = "hub_status"
)

type message struct {
	SerialNumber     string          `json:"serial_number"`
	Type             string          `json:"type"`
	HubSerialNumber  string          `json:"hub_sn"`
	Obs              [][]*float64    `json:"obs"`
	Ob               []*float64      `json:"ob"`
	Evt              []*float64      `json:"evt"`
	Timestamp        int64           `json:"timestamp"`
	Uptime           int64           `json:"uptime"`
	Voltage          *float64        `json:"voltage"`
	FirmwareRevision json.RawMessage `json:"firmware_revision"`
	RSSI             *float64        `json:"rssi"`
	HubRSSI          *float64        `json:"hub_rssi"`
	SensorStatus     int64           `json:"sensor_status"`
	ResetFlags       string          `json:"reset_flags"`
}

func parseMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.SerialNumber == "" || msg.Type == "" {
		return nil, fmt.Errorf("invalid message: missing serial_number or type")
	}
	return &msg, nil
}

// firmware revisions are integers for sensors and strings for hubs
func (m *message) firmware() string {
	if len(m.FirmwareRevision) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.FirmwareRevision, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(m.FirmwareRevision, &n); err == nil {
		return n.String()
	}
	return ""
}

func isKnownMessage(t string) bool {
	switch t {
	case MSG_EVT_PRECIP, MSG_EVT_STRIKE, MSG_RAPID_WIND, MSG_OBS_AIR, MSG_OBS_SKY, MSG_OBS_ST, MSG_DEVICE_STATUS, MSG_HUB_STATUS:
		return true
	}
	return false
}

func field(row []*float64, i int) (float64, bool) {
	if i >= len(row) || row[i] == nil {
		return 0, false
	}
	return *row[i], true
}

func epoch(row []*float64) time.Time {
	if v, ok := field(row, 0); ok {
		return time.Unix(int64(v), 0)
	}
	return time.Now()
}

type setter map[string]any

func (s setter) quantity(key string, row []*float64, i int, unit Unit) {
	if v, ok := field(row, i); ok {
		s[key] = Q(v, unit)
	} else {
		s[key] = nil
	}
}

func (s setter) number(key string, row []*float64, i int) {
	if v, ok := field(row, i); ok {
		s[key] = v
	} else {
		s[key] = nil
	}
}

func (s setter) integer(key string, row []*float64, i int) {
	if v, ok := field(row, i); ok {
		s[key] = int(v)
	} else {
		s[key] = nil
	}
}

func (s setter) precipitation(row []*float64, i int) {
	if v, ok := field(row, i); ok {
		s[ATTR_PRECIPITATION_TYPE] = PrecipitationType(int(v))
	} else {
		s[ATTR_PRECIPITATION_TYPE] = nil
	}
}

func (s setter) rain(row []*float64, i int) {
	if v, ok := field(row, i); ok {
		s[ATTR_RAIN_ACCUMULATION_PREVIOUS_MINUTE] = Q(v, Millimeters)
		s[ATTR_RAIN_AMOUNT_PREVIOUS_MINUTE] = Q(v, MillimetersPerMinute)
	} else {
		s[ATTR_RAIN_ACCUMULATION_PREVIOUS_MINUTE] = nil
		s[ATTR_RAIN_AMOUNT_PREVIOUS_MINUTE] = nil
	}
}

// obs_st: time, lull, avg, gust, dir, sample interval, pressure, temp, rh,
// lux, uv, solar, rain, precip type, strike distance, strike count,
// battery, report interval
func tempestObservation(row []*float64) setter {
	s := setter{}
	s.quantity(ATTR_WIND_LULL, row, 1, MetersPerSecond)
	s.quantity(ATTR_WIND_AVERAGE, row, 2, MetersPerSecond)
	s.quantity(ATTR_WIND_SPEED, row, 2, MetersPerSecond)
	s.quantity(ATTR_WIND_GUST, row, 3, MetersPerSecond)
	s.quantity(ATTR_WIND_DIRECTION, row, 4, Degree)
	s.quantity(ATTR_STATION_PRESSURE, row, 6, Millibar)
	s.quantity(ATTR_AIR_TEMPERATURE, row, 7, Celsius)
	s.quantity(ATTR_RELATIVE_HUMIDITY, row, 8, Percent)
	s.quantity(ATTR_ILLUMINANCE, row, 9, Lux)
	s.number(ATTR_UV, row, 10)
	s.quantity(ATTR_SOLAR_RADIATION, row, 11, WattsPerSquareMeter)
	s.rain(row, 12)
	s.precipitation(row, 13)
	s.quantity(ATTR_LIGHTNING_STRIKE_AVERAGE_DISTANCE, row, 14, Kilometers)
	s.integer(ATTR_LIGHTNING_STRIKE_COUNT, row, 15)
	s.quantity(ATTR_BATTERY, row, 16, Volt)
	s.integer(ATTR_REPORT_INTERVAL, row, 17)
	return s
}

// obs_air: time, pressure, temp, rh, strike count, strike distance,
// battery, report interval
func airObservation(row []*float64) setter {
	s := setter{}
	s.quantity(ATTR_STATION_PRESSURE, row, 1, Millibar)
	s.quantity(ATTR_AIR_TEMPERATURE, row, 2, Celsius)
	s.quantity(ATTR_RELATIVE_HUMIDITY, row, 3, Percent)
	s.integer(ATTR_LIGHTNING_STRIKE_COUNT, row, 4)
	s.quantity(ATTR_LIGHTNING_STRIKE_AVERAGE_DISTANCE, row, 5, Kilometers)
	s.quantity(ATTR_BATTERY, row, 6, Volt)
	s.integer(ATTR_REPORT_INTERVAL, row, 7)
	return s
}

// obs_sky: time, lux, uv, rain, lull, avg, gust, dir, battery, report
// interval, solar, day rain, precip type, wind sample interval
func skyObservation(row []*float64) setter {
	s := setter{}
	s.quantity(ATTR_ILLUMINANCE, row, 1, Lux)
	s.number(ATTR_UV, row, 2)
	s.rain(row, 3)
	s.quantity(ATTR_WIND_LULL, row, 4, MetersPerSecond)
	s.quantity(ATTR_WIND_AVERAGE, row, 5, MetersPerSecond)
	s.quantity(ATTR_WIND_SPEED, row, 5, MetersPerSecond)
	s.quantity(ATTR_WIND_GUST, row, 6, MetersPerSecond)
	s.quantity(ATTR_WIND_DIRECTION, row, 7, Degree)
	s.quantity(ATTR_BATTERY, row, 8, Volt)
	s.integer(ATTR_REPORT_INTERVAL, row, 9)
	s.quantity(ATTR_SOLAR_RADIATION, row, 10, WattsPerSquareMeter)
	s.precipitation(row, 12)
	return s
}

func magnitude(attrs map[string]any, key string) (float64, bool) {
	q, ok := attrs[key].(Quantity)
	if !ok {
		return 0, false
	}
	return q.Value, true
}

// derive recomputes the values calculated from the raw observation.
func derive(attrs map[string]any, model string) {
	temp, hasTemp := magnitude(attrs, ATTR_AIR_TEMPERATURE)
	rh, hasRh := magnitude(attrs, ATTR_RELATIVE_HUMIDITY)
	if !hasTemp || !hasRh {
		return
	}
	wind := -1.0
	if model == MODEL_TEMPEST {
		if avg, ok := magnitude(attrs, ATTR_WIND_AVERAGE); ok {
			wind = avg
			attrs[ATTR_WIND_CHILL] = Q(WindChill(temp, avg), Celsius)
		}
	}
	attrs[ATTR_DEW_POINT_TEMPERATURE] = Q(DewPoint(temp, rh), Celsius)
	attrs[ATTR_FEELS_LIKE_TEMPERATURE] = Q(FeelsLike(temp, rh, wind), Celsius)
	attrs[ATTR_HEAT_INDEX] = Q(HeatIndex(temp, rh), Celsius)
	attrs[ATTR_WET_BULB_TEMPERATURE] = Q(WetBulb(temp, rh), Celsius)
	attrs[ATTR_VAPOR_PRESSURE] = Q(VaporPressure(temp, rh), Millibar)
	if pressure, ok := magnitude(attrs, ATTR_STATION_PRESSURE); ok {
		attrs[ATTR_AIR_DENSITY] = Q(AirDensity(pressure, temp, rh), KilogramsPerCubicMeter)
	}
}

// apply folds a decoded message into the device state and emits the
// matching device event.
func (d *device) apply(msg *message) {
	d.setIdentity(msg.HubSerialNumber, msg.firmware())

	switch msg.Type {
	case MSG_OBS_ST, MSG_OBS_AIR, MSG_OBS_SKY:
		for _, row := range msg.Obs {
			var s setter
			switch msg.Type {
			case MSG_OBS_ST:
				s = tempestObservation(row)
			case MSG_OBS_AIR:
				s = airObservation(row)
			default:
				s = skyObservation(row)
			}
			d.update(EVENT_OBSERVATION, epoch(row), func(attrs map[string]any) {
				for k, v := range s {
					attrs[k] = v
				}
				derive(attrs, d.model)
			})
		}
	case MSG_RAPID_WIND:
		s := setter{}
		s.quantity(ATTR_WIND_SPEED, msg.Ob, 1, MetersPerSecond)
		s.quantity(ATTR_WIND_DIRECTION, msg.Ob, 2, Degree)
		d.update(EVENT_RAPID_WIND, epoch(msg.Ob), func(attrs map[string]any) {
			for k, v := range s {
				attrs[k] = v
			}
		})
	case MSG_EVT_STRIKE:
		ts := epoch(msg.Evt)
		s := setter{}
		s.quantity(ATTR_LAST_LIGHTNING_STRIKE_DISTANCE, msg.Evt, 1, Kilometers)
		d.update(EVENT_LIGHTNING_STRIKE, ts, func(attrs map[string]any) {
			for k, v := range s {
				attrs[k] = v
			}
			attrs[ATTR_LAST_LIGHTNING_STRIKE_EVENT] = ts
		})
	case MSG_EVT_PRECIP:
		d.update(EVENT_PRECIPITATION_START, epoch(msg.Evt), nil)
	case MSG_DEVICE_STATUS, MSG_HUB_STATUS:
		ts := time.Unix(msg.Timestamp, 0)
		d.update(EVENT_STATUS_UPDATE, ts, func(attrs map[string]any) {
			if msg.RSSI != nil {
				attrs[ATTR_RSSI] = Q(*msg.RSSI, DecibelsMilliwatt)
			}
			if msg.Type == MSG_HUB_STATUS {
				attrs[ATTR_RESET_FLAGS] = msg.ResetFlags
			} else {
				if msg.HubRSSI != nil {
					attrs[ATTR_HUB_RSSI] = Q(*msg.HubRSSI, DecibelsMilliwatt)
				}
				if msg.Voltage != nil {
					attrs[ATTR_BATTERY] = Q(*msg.Voltage, Volt)
				}
			}
			attrs[ATTR_UP_SINCE] = ts.Add(-time.Duration(msg.Uptime) * time.Second).UTC()
		})
	}
}
