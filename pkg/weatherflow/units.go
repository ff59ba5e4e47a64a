package weatherflow

import (
	"fmt"
	"math"
)

type Dimension int

const (
	DimensionNone Dimension = iota
	DimensionTemperature
	DimensionPressure
	DimensionSpeed
	DimensionLength
	DimensionPrecipitationRate
	DimensionDensity
	DimensionIlluminance
	DimensionIrradiance
	DimensionPotential
	DimensionRatio
	DimensionAngle
	DimensionSignal
	DimensionIndex
)

func (d Dimension) String() string {
	switch d {
	case DimensionTemperature:
		return "temperature"
	case DimensionPressure:
		return "pressure"
	case DimensionSpeed:
		return "speed"
	case DimensionLength:
		return "length"
	case DimensionPrecipitationRate:
		return "precipitation_rate"
	case DimensionDensity:
		return "density"
	case DimensionIlluminance:
		return "illuminance"
	case DimensionIrradiance:
		return "irradiance"
	case DimensionPotential:
		return "electric_potential"
	case DimensionRatio:
		return "ratio"
	case DimensionAngle:
		return "angle"
	case DimensionSignal:
		return "signal_strength"
	case DimensionIndex:
		return "index"
	default:
		return "none"
	}
}

// Unit is a physical unit. A value v expressed in the unit equals
// v*factor+offset expressed in the base unit of its dimension.
type Unit struct {
	Symbol    string
	Dimension Dimension
	factor    float64
	offset    float64
}

func (u Unit) String() string {
	return u.Symbol
}

var (
	Celsius    = Unit{Symbol: "°C", Dimension: DimensionTemperature, factor: 1}
	Fahrenheit = Unit{Symbol: "°F", Dimension: DimensionTemperature, factor: 5.0 / 9.0, offset: -32 * 5.0 / 9.0}

	Millibar          = Unit{Symbol: "mbar", Dimension: DimensionPressure, factor: 1}
	Hectopascal       = Unit{Symbol: "hPa", Dimension: DimensionPressure, factor: 1}
	InchesOfMercury   = Unit{Symbol: "inHg", Dimension: DimensionPressure, factor: 33.8638866667}
	MetersPerSecond   = Unit{Symbol: "m/s", Dimension: DimensionSpeed, factor: 1}
	KilometersPerHour = Unit{Symbol: "km/h", Dimension: DimensionSpeed, factor: 1 / 3.6}
	MilesPerHour      = Unit{Symbol: "mph", Dimension: DimensionSpeed, factor: 0.44704}

	Millimeters = Unit{Symbol: "mm", Dimension: DimensionLength, factor: 1}
	Inches      = Unit{Symbol: "in", Dimension: DimensionLength, factor: 25.4}
	Kilometers  = Unit{Symbol: "km", Dimension: DimensionLength, factor: 1e6}
	Miles       = Unit{Symbol: "mi", Dimension: DimensionLength, factor: 1609344}

	MillimetersPerMinute = Unit{Symbol: "mm/min", Dimension: DimensionPrecipitationRate, factor: 60}
	MillimetersPerHour   = Unit{Symbol: "mm/h", Dimension: DimensionPrecipitationRate, factor: 1}
	InchesPerHour        = Unit{Symbol: "in/h", Dimension: DimensionPrecipitationRate, factor: 25.4}

	KilogramsPerCubicMeter = Unit{Symbol: "kg/m³", Dimension: DimensionDensity, factor: 1}
	PoundsPerCubicFoot     = Unit{Symbol: "lbs/ft³", Dimension: DimensionDensity, factor: 16.01846337396}

	Lux                 = Unit{Symbol: "lx", Dimension: DimensionIlluminance, factor: 1}
	WattsPerSquareMeter = Unit{Symbol: "W/m²", Dimension: DimensionIrradiance, factor: 1}
	Volt                = Unit{Symbol: "V", Dimension: DimensionPotential, factor: 1}
	Percent             = Unit{Symbol: "%", Dimension: DimensionRatio, factor: 1}
	Degree              = Unit{Symbol: "°", Dimension: DimensionAngle, factor: 1}
	DecibelsMilliwatt   = Unit{Symbol: "dBm", Dimension: DimensionSignal, factor: 1}
	UVIndex             = Unit{Symbol: "UV index", Dimension: DimensionIndex, factor: 1}
	StrikeCount         = Unit{Symbol: "", Dimension: DimensionNone, factor: 1}
)

// Quantity is a magnitude paired with its unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

func Q(value float64, unit Unit) Quantity {
	return Quantity{Value: value, Unit: unit}
}

// To converts the quantity into another unit of the same dimension.
func (q Quantity) To(unit Unit) (Quantity, error) {
	if q.Unit.Dimension != unit.Dimension {
		return q, fmt.Errorf("cannot convert %s (%s) to %s (%s)", q.Unit.Symbol, q.Unit.Dimension, unit.Symbol, unit.Dimension)
	}
	if q.Unit == unit {
		return q, nil
	}
	base := q.Value*q.Unit.factor + q.Unit.offset
	return Quantity{Value: (base - unit.offset) / unit.factor, Unit: unit}, nil
}

func (q Quantity) Magnitude() float64 {
	return q.Value
}

func (q Quantity) String() string {
	if q.Unit.Symbol == "" {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Unit.Symbol)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}
