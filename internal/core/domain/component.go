package domain

type Device struct {
	Id            string
	Name          string
	Version       string
	Model         string
	Manufacturer  string
	SerialNumber  string
	SuggestedArea string
	ViaDevice     string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total
	DeviceClass       string // temperature, pressure, wind_speed, timestamp...
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string

	// publish a JSON attributes topic next to the state topic
	Attributes bool

	// availability follows the device as well as the bridge
	DeviceAvailability bool

	// state is a JSON object with value and last_reset keys
	LastReset bool
}
