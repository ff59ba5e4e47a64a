package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/weatherflow2mqtt/internal/config"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func testClient(discoveryTopic string) *MQTTClient {
	cfg := &config.Config{MQTT: config.MQTTConfig{
		Host:             "localhost",
		Port:             1883,
		BaseTopic:        "weatherflow",
		HADiscoveryTopic: discoveryTopic,
	}}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func testSensor() domain.GenericSensor {
	return domain.GenericSensor{
		Device: domain.Device{
			Id:            "smartweatherudp_ST-00000512",
			Name:          "Tempest ST-00000512",
			Manufacturer:  "WeatherFlow",
			Model:         "Tempest",
			SerialNumber:  "ST-00000512",
			SuggestedArea: "Backyard",
			ViaDevice:     "smartweatherudp_HB-00013030",
		},
		Id:                 "smartweatherudp_ST-00000512_rain_accumulation",
		SensorType:         domain.SENSOR_TYPE_SENSOR,
		Name:               "Tempest ST-00000512 Rain Accumulation",
		UniqueId:           "smartweatherudp_ST-00000512_rain_accumulation",
		UnitOfMeasurement:  "mm",
		StateClass:         domain.STATE_CLASS_TOTAL,
		Attributes:         true,
		DeviceAvailability: true,
		LastReset:          true,
	}
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)
	c := testClient("")

	assert.Equal("weatherflow/bridge/state", c.BridgeStateTopic())
	assert.Equal("weatherflow/sensor/abc/state", c.SensorStateTopic("abc"))
	assert.Equal("weatherflow/sensor/abc/attributes", c.SensorAttributesTopic("abc"))
	assert.Equal("weatherflow/device/ST-00000512/availability", c.DeviceAvailabilityTopic("ST-00000512"))
	assert.Equal("homeassistant/status", c.HAStatusTopic())
	assert.Equal("homeassistant/sensor/smartweatherudp_ST-00000512/smartweatherudp_ST-00000512_rain_accumulation/config",
		c.HADiscoverySensorTopic(testSensor()))

	custom := testClient("ha")
	assert.Equal("ha/status", custom.HAStatusTopic())
}

func TestSensorDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient("")
	msg := GenericSensorToHADiscoveryMessage(c, testSensor())

	assert.Equal("weatherflow/sensor/smartweatherudp_ST-00000512_rain_accumulation/state", msg.StateTopic)
	assert.Equal("weatherflow/sensor/smartweatherudp_ST-00000512_rain_accumulation/attributes", msg.JsonAttributesTopic)
	assert.Empty(msg.AvTopic)
	assert.Equal("all", msg.AvMode)
	assert.Equal([]HADiscoveryAvailability{
		{Topic: "weatherflow/bridge/state"},
		{Topic: "weatherflow/device/ST-00000512/availability"},
	}, msg.Availability)

	raw, err := json.Marshal(msg)
	assert.NoError(err)
	var decoded map[string]any
	assert.NoError(json.Unmarshal(raw, &decoded))
	dev := decoded["device"].(map[string]any)
	assert.Equal("Backyard", dev["suggested_area"])
	assert.Equal("ST-00000512", dev["serial_number"])
	assert.Equal("smartweatherudp_HB-00013030", dev["via_device"])
	assert.Equal("total", decoded["state_class"])
	assert.Equal("{{ value_json.value }}", decoded["value_template"])
	assert.Equal("{{ value_json.last_reset }}", decoded["last_reset_value_template"])

	plain := testSensor()
	plain.StateClass = domain.STATE_CLASS_MEASUREMENT
	plain.LastReset = false
	raw, err = json.Marshal(GenericSensorToHADiscoveryMessage(c, plain))
	assert.NoError(err)
	decoded = map[string]any{}
	assert.NoError(json.Unmarshal(raw, &decoded))
	assert.NotContains(decoded, "value_template")
	assert.NotContains(decoded, "last_reset_value_template")
}

func TestBridgeDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient("")
	sensors := domain.BridgeSensors(domain.BridgeDevice("weatherflow"))
	msg := GenericSensorToHADiscoveryMessage(c, sensors[0])

	assert.Equal("weatherflow/bridge/state", msg.StateTopic)
	assert.Equal("weatherflow/bridge/state", msg.AvTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
	assert.Nil(msg.Availability)
}
