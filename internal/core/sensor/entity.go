package sensor

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"
)

type labeled interface {
	Name() string
}

// Entity binds one device to one description.
type Entity struct {
	device      weatherflow.Device
	description Description
	metric      bool
	unit        string

	mu      sync.Mutex
	cancels []func()
}

func NewEntity(device weatherflow.Device, description Description, metric bool) *Entity {
	unit := description.NativeUnit
	if !metric {
		if imperial, ok := ImperialUnit(unit); ok {
			unit = imperial
		}
	}
	return &Entity{
		device:      device,
		description: description,
		metric:      metric,
		unit:        unit,
	}
}

// NewEntities creates an entity for every description whose attribute is in
// the capability set of the device.
func NewEntities(device weatherflow.Device, descriptions []Description, metric bool) []*Entity {
	caps := device.Capabilities()
	var entities []*Entity
	for _, d := range descriptions {
		if slices.Contains(caps, d.AttributeKey()) {
			entities = append(entities, NewEntity(device, d, metric))
		}
	}
	return entities
}

func (e *Entity) Device() weatherflow.Device {
	return e.device
}

func (e *Entity) Description() Description {
	return e.description
}

func (e *Entity) UniqueId() string {
	return fmt.Sprintf("%s_%s_%s", DOMAIN, e.device.SerialNumber(), e.description.Key)
}

func (e *Entity) Name() string {
	return fmt.Sprintf("%s %s %s", e.device.Model(), e.device.SerialNumber(), e.description.Name)
}

func (e *Entity) UnitOfMeasurement() string {
	return e.unit
}

// NativeValue re-reads the device attribute. A nil result means unknown.
func (e *Entity) NativeValue() any {
	value, ok := e.device.Attribute(e.description.AttributeKey())
	if !ok {
		return nil
	}

	if fn := e.description.ConversionFn; !e.metric && fn != nil {
		value = fn(value)
	} else if fn := e.description.ValueFn; fn != nil {
		value = fn(value)
	}

	switch v := value.(type) {
	case weatherflow.Quantity:
		value = v.Magnitude()
	case labeled:
		value = v.Name()
	}

	if d := e.description.Decimals; d != nil {
		if f, ok := value.(float64); ok {
			value = weatherflow.Round(f, *d)
		}
	}
	return value
}

// LastReset is the device last report for accumulating sensors.
func (e *Entity) LastReset() *time.Time {
	if e.description.StateClass != domain.STATE_CLASS_TOTAL {
		return nil
	}
	lr := e.device.LastReport()
	if lr.IsZero() {
		return nil
	}
	return &lr
}

// Attach subscribes to the trigger events of the description. onUpdate is
// called from the device event goroutine and must not block.
func (e *Entity) Attach(onUpdate func(*Entity)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.cancels) > 0 {
		return
	}
	for _, event := range e.description.EventSubscriptions {
		e.cancels = append(e.cancels, e.device.On(event, func(weatherflow.Event) {
			onUpdate(e)
		}))
	}
}

// Detach removes every handler registered by Attach.
func (e *Entity) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
}

func (e *Entity) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cancels) > 0
}

// UpdateEvent renders the current value as a sensor update. Accumulating
// sensors get a JSON state carrying the last reset.
func (e *Entity) UpdateEvent() domain.SensorUpdateEvent {
	id := domain.SensorUpdateEventMixIn{Id: e.UniqueId()}
	if e.description.StateClass == domain.STATE_CLASS_TOTAL {
		return e.jsonUpdateEvent(id)
	}
	switch v := e.NativeValue().(type) {
	case nil:
		return domain.UnknownSensorUpdateEvent{SensorUpdateEventMixIn: id}
	case float64:
		if d := e.description.Decimals; d != nil && *d >= 0 {
			return domain.FloatSensorUpdateEvent{SensorUpdateEventMixIn: id, Value: v, Decimals: uint(*d)}
		}
		return domain.TextSensorUpdateEvent{SensorUpdateEventMixIn: id, Value: strconv.FormatFloat(v, 'f', -1, 64)}
	case int:
		return domain.TextSensorUpdateEvent{SensorUpdateEventMixIn: id, Value: strconv.Itoa(v)}
	case time.Time:
		return domain.TextSensorUpdateEvent{SensorUpdateEventMixIn: id, Value: v.UTC().Format(time.RFC3339)}
	case string:
		return domain.TextSensorUpdateEvent{SensorUpdateEventMixIn: id, Value: v}
	default:
		return domain.TextSensorUpdateEvent{SensorUpdateEventMixIn: id, Value: fmt.Sprint(v)}
	}
}

func (e *Entity) jsonUpdateEvent(id domain.SensorUpdateEventMixIn) domain.JsonSensorUpdateEvent {
	values := map[string]any{"value": nil, "last_reset": nil}
	switch v := e.NativeValue().(type) {
	case nil:
	case float64, int, string:
		values["value"] = v
	case time.Time:
		values["value"] = v.UTC().Format(time.RFC3339)
	default:
		values["value"] = fmt.Sprint(v)
	}
	if lr := e.LastReset(); lr != nil {
		values["last_reset"] = lr.UTC().Format(time.RFC3339)
	}
	return domain.JsonSensorUpdateEvent{SensorUpdateEventMixIn: id, Values: values}
}

// AttributesEvent renders the JSON attributes of the entity.
func (e *Entity) AttributesEvent() domain.SensorAttributesUpdateEvent {
	attrs := map[string]any{
		"attribution": domain.WEATHERFLOW_ATTRIBUTION,
	}
	if lr := e.LastReset(); lr != nil {
		attrs["last_reset"] = lr.UTC().Format(time.RFC3339)
	}
	return domain.SensorAttributesUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: e.UniqueId()},
		Attributes:             attrs,
	}
}

// DeviceInfo builds the device registry block. Sensors attached to a hub are
// linked to it, hubs are linked to the bridge.
func DeviceInfo(device weatherflow.Device, bridgeDeviceId string) domain.Device {
	via := bridgeDeviceId
	if hub := device.HubSerialNumber(); hub != "" && hub != device.SerialNumber() {
		via = DeviceId(hub)
	}
	return domain.Device{
		Id:            DeviceId(device.SerialNumber()),
		Name:          fmt.Sprintf("%s %s", device.Model(), device.SerialNumber()),
		Manufacturer:  domain.WEATHERFLOW_MANUFACTURER,
		Model:         device.Model(),
		SerialNumber:  device.SerialNumber(),
		Version:       device.FirmwareRevision(),
		SuggestedArea: domain.WEATHERFLOW_SUGGESTED_AREA,
		ViaDevice:     via,
	}
}

func DeviceId(serial string) string {
	return fmt.Sprintf("%s_%s", DOMAIN, serial)
}

// GenericSensor maps the entity onto the discovery model.
func (e *Entity) GenericSensor(device domain.Device) domain.GenericSensor {
	d := e.description
	var enabled *bool
	if !d.EnabledByDefault {
		enabled = &d.EnabledByDefault
	}
	return domain.GenericSensor{
		Device:             device,
		Id:                 e.UniqueId(),
		SensorType:         domain.SENSOR_TYPE_SENSOR,
		Name:               e.Name(),
		UniqueId:           e.UniqueId(),
		UnitOfMeasurement:  e.unit,
		StateClass:         d.StateClass,
		DeviceClass:        d.DeviceClass,
		EntityCategory:     d.EntityCategory,
		EnabledByDefault:   enabled,
		Icon:               d.Icon,
		Attributes:         true,
		DeviceAvailability: true,
		LastReset:          d.StateClass == domain.STATE_CLASS_TOTAL,
	}
}
