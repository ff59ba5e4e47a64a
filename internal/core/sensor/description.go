package sensor

import (
	"fmt"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"
)

const (
	DOMAIN = "smartweatherudp"

	DEVICE_CLASS_DISTANCE                = "distance"
	DEVICE_CLASS_ENUM                    = "enum"
	DEVICE_CLASS_HUMIDITY                = "humidity"
	DEVICE_CLASS_ILLUMINANCE             = "illuminance"
	DEVICE_CLASS_IRRADIANCE              = "irradiance"
	DEVICE_CLASS_PRECIPITATION           = "precipitation"
	DEVICE_CLASS_PRECIPITATION_INTENSITY = "precipitation_intensity"
	DEVICE_CLASS_PRESSURE                = "pressure"
	DEVICE_CLASS_SIGNAL_STRENGTH         = "signal_strength"
	DEVICE_CLASS_TEMPERATURE             = "temperature"
	DEVICE_CLASS_TIMESTAMP               = "timestamp"
	DEVICE_CLASS_VOLTAGE                 = "voltage"
)

// TransformFn maps a raw device attribute to the value to publish.
type TransformFn func(any) any

// Description is the static presentation and conversion metadata of one
// measurement kind. Descriptions are built by the constructor functions in
// this file and never modified afterwards.
type Description struct {
	Key                string
	Name               string
	NativeUnit         string
	Icon               string
	DeviceClass        string
	StateClass         string
	Attr               string
	Decimals           *int
	ConversionFn       TransformFn
	ValueFn            TransformFn
	EventSubscriptions []string
	EntityCategory     string
	EnabledByDefault   bool
}

// AttributeKey is the device attribute read for this description.
func (d Description) AttributeKey() string {
	if d.Attr != "" {
		return d.Attr
	}
	return d.Key
}

func decimals(n int) *int {
	return &n
}

// to converts quantities into unit. Anything else passes through.
func to(unit weatherflow.Unit) TransformFn {
	return func(value any) any {
		q, ok := value.(weatherflow.Quantity)
		if !ok {
			return value
		}
		converted, err := q.To(unit)
		if err != nil {
			return value
		}
		return converted
	}
}

var observation = []string{weatherflow.EVENT_OBSERVATION}

func measurement(key, name string, unit weatherflow.Unit, deviceClass string) Description {
	return Description{
		Key:                key,
		Name:               name,
		NativeUnit:         unit.Symbol,
		DeviceClass:        deviceClass,
		StateClass:         domain.STATE_CLASS_MEASUREMENT,
		EventSubscriptions: observation,
		EnabledByDefault:   true,
	}
}

func temperature(key, name string, precision *int) Description {
	d := measurement(key, name, weatherflow.Celsius, DEVICE_CLASS_TEMPERATURE)
	d.Decimals = precision
	return d
}

func pressure(key, name string) Description {
	d := measurement(key, name, weatherflow.Millibar, DEVICE_CLASS_PRESSURE)
	d.ConversionFn = to(weatherflow.InchesOfMercury)
	d.Decimals = decimals(5)
	return d
}

func wind(key, name string, events ...string) Description {
	d := measurement(key, name, weatherflow.KilometersPerHour, "")
	d.Icon = "mdi:weather-windy"
	d.ConversionFn = to(weatherflow.MilesPerHour)
	d.ValueFn = to(weatherflow.KilometersPerHour)
	d.Decimals = decimals(2)
	if len(events) > 0 {
		d.EventSubscriptions = events
	}
	return d
}

func distance(key, name string, events ...string) Description {
	d := measurement(key, name, weatherflow.Kilometers, DEVICE_CLASS_DISTANCE)
	d.Icon = "mdi:flash"
	d.ConversionFn = to(weatherflow.Miles)
	d.Decimals = decimals(2)
	if len(events) > 0 {
		d.EventSubscriptions = events
	}
	return d
}

func diagnostic(key, name, unit, deviceClass string, enabled bool, events ...string) Description {
	return Description{
		Key:                key,
		Name:               name,
		NativeUnit:         unit,
		DeviceClass:        deviceClass,
		StateClass:         domain.STATE_CLASS_MEASUREMENT,
		EntityCategory:     domain.ENTITY_CLASS_DIAGNOSTIC,
		EventSubscriptions: events,
		EnabledByDefault:   enabled,
	}
}

func timestamp(key, name string, d Description) Description {
	d.Key = key
	d.Name = name
	d.NativeUnit = ""
	d.DeviceClass = DEVICE_CLASS_TIMESTAMP
	d.StateClass = ""
	return d
}

func airDensity() Description {
	d := measurement(weatherflow.ATTR_AIR_DENSITY, "Air Density", weatherflow.KilogramsPerCubicMeter, "")
	d.ConversionFn = to(weatherflow.PoundsPerCubicFoot)
	d.Decimals = decimals(5)
	return d
}

func rainRate() Description {
	d := measurement("rain_rate", "Rain Rate", weatherflow.MillimetersPerHour, DEVICE_CLASS_PRECIPITATION_INTENSITY)
	d.Attr = weatherflow.ATTR_RAIN_AMOUNT_PREVIOUS_MINUTE
	d.Icon = "mdi:weather-rainy"
	d.ConversionFn = to(weatherflow.InchesPerHour)
	d.ValueFn = to(weatherflow.MillimetersPerHour)
	d.Decimals = decimals(2)
	return d
}

func rainAccumulation() Description {
	d := measurement("rain_accumulation", "Rain Accumulation", weatherflow.Millimeters, DEVICE_CLASS_PRECIPITATION)
	d.Attr = weatherflow.ATTR_RAIN_ACCUMULATION_PREVIOUS_MINUTE
	d.Icon = "mdi:weather-pouring"
	d.StateClass = domain.STATE_CLASS_TOTAL
	d.ConversionFn = to(weatherflow.Inches)
	d.Decimals = decimals(2)
	return d
}

func precipitationType() Description {
	return Description{
		Key:                weatherflow.ATTR_PRECIPITATION_TYPE,
		Name:               "Precipitation Type",
		Icon:               "mdi:weather-rainy",
		DeviceClass:        DEVICE_CLASS_ENUM,
		EventSubscriptions: observation,
		EnabledByDefault:   true,
	}
}

func lightningCount() Description {
	d := measurement(weatherflow.ATTR_LIGHTNING_STRIKE_COUNT, "Lightning Count", weatherflow.StrikeCount, "")
	d.Icon = "mdi:flash"
	return d
}

// Descriptions returns a fresh copy of every known sensor description.
func Descriptions() []Description {
	status := []string{weatherflow.EVENT_STATUS_UPDATE}
	rapid := []string{weatherflow.EVENT_RAPID_WIND, weatherflow.EVENT_OBSERVATION}
	strike := []string{weatherflow.EVENT_LIGHTNING_STRIKE}

	windDirection := measurement(weatherflow.ATTR_WIND_DIRECTION, "Wind Direction", weatherflow.Degree, "")
	windDirection.Icon = "mdi:compass-outline"
	windDirection.EventSubscriptions = rapid

	uv := measurement(weatherflow.ATTR_UV, "UV", weatherflow.UVIndex, "")
	uv.Icon = "mdi:weather-sunny"

	battery := measurement(weatherflow.ATTR_BATTERY, "Battery Voltage", weatherflow.Volt, DEVICE_CLASS_VOLTAGE)
	battery.EntityCategory = domain.ENTITY_CLASS_DIAGNOSTIC
	battery.EventSubscriptions = []string{weatherflow.EVENT_OBSERVATION, weatherflow.EVENT_STATUS_UPDATE}

	resetFlags := diagnostic(weatherflow.ATTR_RESET_FLAGS, "Reset Flags", "", "", false, status...)
	resetFlags.StateClass = ""

	return []Description{
		temperature(weatherflow.ATTR_AIR_TEMPERATURE, "Temperature", nil),
		airDensity(),
		temperature(weatherflow.ATTR_DEW_POINT_TEMPERATURE, "Dew Point", decimals(2)),
		battery,
		temperature(weatherflow.ATTR_FEELS_LIKE_TEMPERATURE, "Feels Like", decimals(2)),
		temperature(weatherflow.ATTR_HEAT_INDEX, "Heat Index", decimals(2)),
		measurement(weatherflow.ATTR_ILLUMINANCE, "Illuminance", weatherflow.Lux, DEVICE_CLASS_ILLUMINANCE),
		distance(weatherflow.ATTR_LAST_LIGHTNING_STRIKE_DISTANCE, "Last Lightning Strike Distance", strike...),
		timestamp(weatherflow.ATTR_LAST_LIGHTNING_STRIKE_EVENT, "Last Lightning Strike",
			Description{Icon: "mdi:flash", EventSubscriptions: strike, EnabledByDefault: true}),
		distance(weatherflow.ATTR_LIGHTNING_STRIKE_AVERAGE_DISTANCE, "Lightning Average Distance"),
		lightningCount(),
		precipitationType(),
		rainAccumulation(),
		rainRate(),
		measurement(weatherflow.ATTR_RELATIVE_HUMIDITY, "Humidity", weatherflow.Percent, DEVICE_CLASS_HUMIDITY),
		resetFlags,
		diagnostic(weatherflow.ATTR_RSSI, "RSSI", weatherflow.DecibelsMilliwatt.Symbol, DEVICE_CLASS_SIGNAL_STRENGTH, false, status...),
		diagnostic(weatherflow.ATTR_HUB_RSSI, "Hub RSSI", weatherflow.DecibelsMilliwatt.Symbol, DEVICE_CLASS_SIGNAL_STRENGTH, false, status...),
		pressure(weatherflow.ATTR_STATION_PRESSURE, "Station Pressure"),
		measurement(weatherflow.ATTR_SOLAR_RADIATION, "Solar Radiation", weatherflow.WattsPerSquareMeter, DEVICE_CLASS_IRRADIANCE),
		timestamp(weatherflow.ATTR_UP_SINCE, "Up Since",
			Description{EntityCategory: domain.ENTITY_CLASS_DIAGNOSTIC, EventSubscriptions: status}),
		uv,
		pressure(weatherflow.ATTR_VAPOR_PRESSURE, "Vapor Pressure"),
		temperature(weatherflow.ATTR_WET_BULB_TEMPERATURE, "Wet Bulb Temperature", decimals(2)),
		wind(weatherflow.ATTR_WIND_AVERAGE, "Wind Average"),
		temperature(weatherflow.ATTR_WIND_CHILL, "Wind Chill", decimals(2)),
		windDirection,
		wind(weatherflow.ATTR_WIND_GUST, "Wind Gust"),
		wind(weatherflow.ATTR_WIND_LULL, "Wind Lull"),
		wind(weatherflow.ATTR_WIND_SPEED, "Wind Speed", rapid...),
	}
}

var knownEvents = map[string]bool{
	weatherflow.EVENT_OBSERVATION:         true,
	weatherflow.EVENT_RAPID_WIND:          true,
	weatherflow.EVENT_STATUS_UPDATE:       true,
	weatherflow.EVENT_PRECIPITATION_START: true,
	weatherflow.EVENT_LIGHTNING_STRIKE:    true,
}

// ValidateDescriptions checks every description against the attribute keys
// and events the device library can produce.
func ValidateDescriptions(descriptions []Description) error {
	seen := make(map[string]bool)
	for _, d := range descriptions {
		if seen[d.Key] {
			return fmt.Errorf("duplicate sensor key %q", d.Key)
		}
		seen[d.Key] = true
		if !weatherflow.IsAttribute(d.AttributeKey()) {
			return fmt.Errorf("sensor %q reads unknown attribute %q", d.Key, d.AttributeKey())
		}
		if len(d.EventSubscriptions) == 0 {
			return fmt.Errorf("sensor %q has no event subscriptions", d.Key)
		}
		for _, e := range d.EventSubscriptions {
			if !knownEvents[e] {
				return fmt.Errorf("sensor %q subscribes to unknown event %q", d.Key, e)
			}
		}
	}
	return nil
}

// imperialUnits is the declared unit remap applied to entities when the
// configured unit system is not metric.
var imperialUnits = map[string]string{
	weatherflow.KilogramsPerCubicMeter.Symbol: weatherflow.PoundsPerCubicFoot.Symbol,
	weatherflow.Millimeters.Symbol:            weatherflow.Inches.Symbol,
	weatherflow.Kilometers.Symbol:             weatherflow.Miles.Symbol,
	weatherflow.MillimetersPerHour.Symbol:     weatherflow.InchesPerHour.Symbol,
	weatherflow.Millibar.Symbol:               weatherflow.InchesOfMercury.Symbol,
	weatherflow.KilometersPerHour.Symbol:      weatherflow.MilesPerHour.Symbol,
}

func ImperialUnit(unit string) (string, bool) {
	u, ok := imperialUnits[unit]
	return u, ok
}
