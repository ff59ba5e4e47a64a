package weatherflow

import "math"

const (
	magnusB = 17.625
	magnusC = 243.04

	// specific gas constant for dry air, J/(kg·K)
	dryAirGasConstant = 287.05
)

// DewPoint returns the dew point in °C using the Magnus approximation.
func DewPoint(tempC, humidity float64) float64 {
	if humidity <= 0 {
		humidity = 0.01
	}
	gamma := math.Log(humidity/100) + magnusB*tempC/(magnusC+tempC)
	return magnusC * gamma / (magnusB - gamma)
}

// VaporPressure returns the actual vapor pressure in mbar.
func VaporPressure(tempC, humidity float64) float64 {
	return saturationVaporPressure(tempC) * humidity / 100
}

func saturationVaporPressure(tempC float64) float64 {
	return 6.1094 * math.Exp(magnusB*tempC/(tempC+magnusC))
}

// AirDensity returns the density of moist air in kg/m³ from station
// pressure (mbar), temperature (°C) and relative humidity (%).
func AirDensity(pressureMbar, tempC, humidity float64) float64 {
	kelvin := tempC + 273.15
	vapor := VaporPressure(tempC, humidity) * 100
	dry := pressureMbar*100 - vapor
	return dry/(dryAirGasConstant*kelvin) + vapor/(461.495*kelvin)
}

// HeatIndex returns the NWS heat index in °C. Below 80 °F the air
// temperature is returned unchanged.
func HeatIndex(tempC, humidity float64) float64 {
	t := celsiusToFahrenheit(tempC)
	if t < 80 {
		return tempC
	}
	rh := humidity
	hi := -42.379 + 2.04901523*t + 10.14333127*rh - 0.22475541*t*rh -
		0.00683783*t*t - 0.05481717*rh*rh + 0.00122874*t*t*rh +
		0.00085282*t*rh*rh - 0.00000199*t*t*rh*rh
	switch {
	case rh < 13 && t >= 80 && t <= 112:
		hi -= ((13 - rh) / 4) * math.Sqrt((17-math.Abs(t-95))/17)
	case rh > 85 && t >= 80 && t <= 87:
		hi += ((rh - 85) / 10) * ((87 - t) / 5)
	}
	return fahrenheitToCelsius(hi)
}

// WindChill returns the NWS wind chill in °C for a wind speed in m/s. It
// only applies at or below 50 °F with at least 3 mph of wind; otherwise the
// air temperature is returned.
func WindChill(tempC, windMs float64) float64 {
	t := celsiusToFahrenheit(tempC)
	mph := windMs / MilesPerHour.factor
	if t > 50 || mph < 3 {
		return tempC
	}
	v := math.Pow(mph, 0.16)
	return fahrenheitToCelsius(35.74 + 0.6215*t - 35.75*v + 0.4275*t*v)
}

// FeelsLike picks heat index when hot and wind chill when cold. A negative
// wind speed means the device has no anemometer.
func FeelsLike(tempC, humidity, windMs float64) float64 {
	if celsiusToFahrenheit(tempC) >= 80 {
		return HeatIndex(tempC, humidity)
	}
	if windMs >= 0 {
		return WindChill(tempC, windMs)
	}
	return tempC
}

// WetBulb returns the wet bulb temperature in °C (Stull, 2011).
func WetBulb(tempC, humidity float64) float64 {
	rh := humidity
	return tempC*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(tempC+rh) - math.Atan(rh-1.676331) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) - 4.686035
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
