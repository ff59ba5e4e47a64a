package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

// UnknownSensorUpdateEvent reports a sensor without a current value.
type UnknownSensorUpdateEvent struct {
	SensorUpdateEventMixIn
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// DeviceAvailabilityUpdateEvent carries the device serial in Id.
type DeviceAvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Online bool
}

// JsonSensorUpdateEvent is a structured state. Sensors with a last reset
// publish their value and last reset together.
type JsonSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Values map[string]any
}

type SensorAttributesUpdateEvent struct {
	SensorUpdateEventMixIn
	Attributes map[string]any
}
