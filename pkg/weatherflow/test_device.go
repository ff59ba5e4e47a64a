package weatherflow

import (
	"time"
)

// TestDevice is an in-memory Device whose attributes and events are driven
// by the caller.
type TestDevice struct {
	*device
}

func NewTestDevice(serial, firmware, hubSerial string) *TestDevice {
	d := newDevice(serial, hubSerial)
	d.firmware = firmware
	return &TestDevice{device: d}
}

// CreateTestTempest returns a Tempest loaded with a typical observation.
func CreateTestTempest() *TestDevice {
	d := NewTestDevice("ST-00000512", "129", "HB-00013030")
	d.Set(map[string]any{
		ATTR_AIR_TEMPERATURE:                   Q(22.37, Celsius),
		ATTR_RELATIVE_HUMIDITY:                 Q(50.26, Percent),
		ATTR_STATION_PRESSURE:                  Q(1013.25, Millibar),
		ATTR_WIND_AVERAGE:                      Q(0.27, MetersPerSecond),
		ATTR_WIND_SPEED:                        Q(0.27, MetersPerSecond),
		ATTR_WIND_GUST:                         Q(0.83, MetersPerSecond),
		ATTR_WIND_LULL:                         Q(0.18, MetersPerSecond),
		ATTR_WIND_DIRECTION:                    Q(187, Degree),
		ATTR_RAIN_AMOUNT_PREVIOUS_MINUTE:       Q(0.5, MillimetersPerMinute),
		ATTR_RAIN_ACCUMULATION_PREVIOUS_MINUTE: Q(0.5, Millimeters),
		ATTR_PRECIPITATION_TYPE:                PRECIPITATION_RAIN,
		ATTR_BATTERY:                           Q(2.41, Volt),
		ATTR_UV:                                3.12,
	}, time.Unix(1588948614, 0))
	return d
}

// Set replaces attribute values and moves last_report forward.
func (t *TestDevice) Set(values map[string]any, reportedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range values {
		t.attributes[k] = v
	}
	if reportedAt.After(t.lastReport) {
		t.lastReport = reportedAt
	}
}

// Fire emits a device event to the registered handlers.
func (t *TestDevice) Fire(event string) {
	t.events.emit(event, Event{Name: event, Device: t, Time: t.LastReport()})
}
