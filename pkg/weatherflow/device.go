package weatherflow

import (
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	MODEL_HUB     = "Hub"
	MODEL_AIR     = "AIR"
	MODEL_SKY     = "SKY"
	MODEL_TEMPEST = "Tempest"
	MODEL_UNKNOWN = "Unknown"
)

// device events
const (
	EVENT_OBSERVATION         = "observation"
	EVENT_RAPID_WIND          = "rapid_wind"
	EVENT_STATUS_UPDATE       = "status_update"
	EVENT_PRECIPITATION_START = "precipitation_start"
	EVENT_LIGHTNING_STRIKE    = "lightning_strike"
)

// attribute keys
const (
	ATTR_AIR_DENSITY                       = "air_density"
	ATTR_AIR_TEMPERATURE                   = "air_temperature"
	ATTR_BATTERY                           = "battery"
	ATTR_DEW_POINT_TEMPERATURE             = "dew_point_temperature"
	ATTR_FEELS_LIKE_TEMPERATURE            = "feels_like_temperature"
	ATTR_HEAT_INDEX                        = "heat_index"
	ATTR_HUB_RSSI                          = "hub_rssi"
	ATTR_ILLUMINANCE                       = "illuminance"
	ATTR_LAST_LIGHTNING_STRIKE_DISTANCE    = "last_lightning_strike_distance"
	ATTR_LAST_LIGHTNING_STRIKE_EVENT       = "last_lightning_strike_event"
	ATTR_LIGHTNING_STRIKE_AVERAGE_DISTANCE = "lightning_strike_average_distance"
	ATTR_LIGHTNING_STRIKE_COUNT            = "lightning_strike_count"
	ATTR_PRECIPITATION_TYPE                = "precipitation_type"
	ATTR_RAIN_ACCUMULATION_PREVIOUS_MINUTE = "rain_accumulation_previous_minute"
	ATTR_RAIN_AMOUNT_PREVIOUS_MINUTE       = "rain_amount_previous_minute"
	ATTR_RELATIVE_HUMIDITY                 = "relative_humidity"
	ATTR_REPORT_INTERVAL                   = "report_interval"
	ATTR_RESET_FLAGS                       = "reset_flags"
	ATTR_RSSI                              = "rssi"
	ATTR_SOLAR_RADIATION                   = "solar_radiation"
	ATTR_STATION_PRESSURE                  = "station_pressure"
	ATTR_UP_SINCE                          = "up_since"
	ATTR_UV                                = "uv"
	ATTR_VAPOR_PRESSURE                    = "vapor_pressure"
	ATTR_WET_BULB_TEMPERATURE              = "wet_bulb_temperature"
	ATTR_WIND_AVERAGE                      = "wind_average"
	ATTR_WIND_CHILL                        = "wind_chill"
	ATTR_WIND_DIRECTION                    = "wind_direction"
	ATTR_WIND_GUST                         = "wind_gust"
	ATTR_WIND_LULL                         = "wind_lull"
	ATTR_WIND_SPEED                        = "wind_speed"
)

var hubCapabilities = []string{
	ATTR_RSSI, ATTR_UP_SINCE, ATTR_RESET_FLAGS,
}

var sensorStatusCapabilities = []string{
	ATTR_BATTERY, ATTR_RSSI, ATTR_HUB_RSSI, ATTR_UP_SINCE, ATTR_REPORT_INTERVAL,
}

var airCapabilities = []string{
	ATTR_AIR_DENSITY, ATTR_AIR_TEMPERATURE, ATTR_DEW_POINT_TEMPERATURE,
	ATTR_FEELS_LIKE_TEMPERATURE, ATTR_HEAT_INDEX, ATTR_RELATIVE_HUMIDITY,
	ATTR_STATION_PRESSURE, ATTR_VAPOR_PRESSURE, ATTR_WET_BULB_TEMPERATURE,
	ATTR_LIGHTNING_STRIKE_COUNT, ATTR_LIGHTNING_STRIKE_AVERAGE_DISTANCE,
	ATTR_LAST_LIGHTNING_STRIKE_DISTANCE, ATTR_LAST_LIGHTNING_STRIKE_EVENT,
}

var skyCapabilities = []string{
	ATTR_ILLUMINANCE, ATTR_UV, ATTR_SOLAR_RADIATION, ATTR_PRECIPITATION_TYPE,
	ATTR_RAIN_AMOUNT_PREVIOUS_MINUTE, ATTR_RAIN_ACCUMULATION_PREVIOUS_MINUTE,
	ATTR_WIND_AVERAGE, ATTR_WIND_DIRECTION, ATTR_WIND_GUST, ATTR_WIND_LULL,
	ATTR_WIND_SPEED,
}

// Attributes returns the closed set of attribute keys any device may expose.
func Attributes() []string {
	all := slices.Concat(hubCapabilities, sensorStatusCapabilities, airCapabilities, skyCapabilities, []string{ATTR_WIND_CHILL})
	slices.Sort(all)
	return slices.Compact(all)
}

func IsAttribute(key string) bool {
	return slices.Contains(Attributes(), key)
}

// ModelFromSerial derives the model name from the serial number prefix.
func ModelFromSerial(serial string) string {
	switch {
	case strings.HasPrefix(serial, "HB"):
		return MODEL_HUB
	case strings.HasPrefix(serial, "AR"):
		return MODEL_AIR
	case strings.HasPrefix(serial, "SK"):
		return MODEL_SKY
	case strings.HasPrefix(serial, "ST"):
		return MODEL_TEMPEST
	default:
		return MODEL_UNKNOWN
	}
}

func capabilitiesFor(model string) []string {
	var caps []string
	switch model {
	case MODEL_HUB:
		caps = slices.Clone(hubCapabilities)
	case MODEL_AIR:
		caps = slices.Concat(sensorStatusCapabilities, airCapabilities)
	case MODEL_SKY:
		caps = slices.Concat(sensorStatusCapabilities, skyCapabilities)
	case MODEL_TEMPEST:
		caps = slices.Concat(sensorStatusCapabilities, airCapabilities, skyCapabilities, []string{ATTR_WIND_CHILL})
	default:
		caps = slices.Clone(sensorStatusCapabilities)
	}
	slices.Sort(caps)
	return slices.Compact(caps)
}

type PrecipitationType int

const (
	PRECIPITATION_NONE PrecipitationType = iota
	PRECIPITATION_RAIN
	PRECIPITATION_HAIL
	PRECIPITATION_RAIN_HAIL
)

// Name returns the enumerated label.
func (p PrecipitationType) Name() string {
	switch p {
	case PRECIPITATION_RAIN:
		return "rain"
	case PRECIPITATION_HAIL:
		return "hail"
	case PRECIPITATION_RAIN_HAIL:
		return "rain_hail"
	default:
		return "none"
	}
}

func (p PrecipitationType) String() string {
	return p.Name()
}

// Event is delivered to device handlers. It carries no payload beyond the
// event name; handlers re-read the attributes they care about.
type Event struct {
	Name   string
	Device Device
	Time   time.Time
}

type Device interface {
	SerialNumber() string
	Model() string
	FirmwareRevision() string
	HubSerialNumber() string
	LastReport() time.Time
	Capabilities() []string
	Attribute(key string) (any, bool)
	On(event string, fn func(Event)) func()
	HandlerCount() int
}

type device struct {
	mu         sync.RWMutex
	serial     string
	model      string
	hubSerial  string
	firmware   string
	lastReport time.Time
	attributes map[string]any
	caps       []string
	events     emitter[Event]
}

func newDevice(serial, hubSerial string) *device {
	model := ModelFromSerial(serial)
	return &device{
		serial:     serial,
		model:      model,
		hubSerial:  hubSerial,
		attributes: make(map[string]any),
		caps:       capabilitiesFor(model),
	}
}

func (d *device) SerialNumber() string {
	return d.serial
}

func (d *device) Model() string {
	return d.model
}

func (d *device) FirmwareRevision() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.firmware
}

func (d *device) HubSerialNumber() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hubSerial
}

func (d *device) LastReport() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastReport
}

func (d *device) Capabilities() []string {
	return slices.Clone(d.caps)
}

func (d *device) Attribute(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.attributes[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (d *device) On(event string, fn func(Event)) func() {
	return d.events.on(event, fn)
}

func (d *device) HandlerCount() int {
	return d.events.count()
}

// update applies attribute changes under the lock, then notifies handlers.
func (d *device) update(event string, ts time.Time, fn func(attrs map[string]any)) {
	d.mu.Lock()
	if fn != nil {
		fn(d.attributes)
	}
	if ts.After(d.lastReport) {
		d.lastReport = ts
	}
	d.mu.Unlock()
	d.events.emit(event, Event{Name: event, Device: d, Time: ts})
}

func (d *device) setIdentity(hubSerial, firmware string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hubSerial != "" {
		d.hubSerial = hubSerial
	}
	if firmware != "" {
		d.firmware = firmware
	}
}
