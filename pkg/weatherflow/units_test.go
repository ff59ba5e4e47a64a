package weatherflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressureToInchesOfMercury(t *testing.T) {

	assert := assert.New(t)

	q, err := Q(1013.25, Millibar).To(InchesOfMercury)
	require.NoError(t, err)

	assert.Equal(InchesOfMercury, q.Unit)
	assert.Equal(29.92126, Round(q.Magnitude(), 5))
	assert.Equal("inHg", q.Unit.Symbol)
}

func TestTemperatureConversion(t *testing.T) {

	assert := assert.New(t)

	f, err := Q(100, Celsius).To(Fahrenheit)
	require.NoError(t, err)
	assert.InDelta(212, f.Value, 1e-9)

	c, err := Q(-40, Fahrenheit).To(Celsius)
	require.NoError(t, err)
	assert.InDelta(-40, c.Value, 1e-9)
}

func TestSpeedAndRateConversion(t *testing.T) {

	assert := assert.New(t)

	kph, err := Q(1, MetersPerSecond).To(KilometersPerHour)
	require.NoError(t, err)
	assert.InDelta(3.6, kph.Value, 1e-9)

	mph, err := Q(0.44704, MetersPerSecond).To(MilesPerHour)
	require.NoError(t, err)
	assert.InDelta(1, mph.Value, 1e-9)

	mmh, err := Q(0.5, MillimetersPerMinute).To(MillimetersPerHour)
	require.NoError(t, err)
	assert.InDelta(30, mmh.Value, 1e-9)

	inh, err := mmh.To(InchesPerHour)
	require.NoError(t, err)
	assert.Equal(1.18, Round(inh.Value, 2))
}

func TestConversionAcrossDimensionsFails(t *testing.T) {

	_, err := Q(10, Millimeters).To(Millibar)
	assert.Error(t, err)
}

func TestRound(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(2.35, Round(2.345, 2))
	assert.Equal(-1.0, Round(-0.5, 0))
	assert.Equal(1013.0, Round(1013.25, 0))
}
