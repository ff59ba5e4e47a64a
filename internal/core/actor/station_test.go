package actor

import (
	"net"
	"testing"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/util"
	"github.com/berfenger/weatherflow2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func availabilityEvents(c *collector) []domain.DeviceAvailabilityUpdateEvent {
	var events []domain.DeviceAvailabilityUpdateEvent
	for _, req := range collected[domain.PublishSensorUpdateRequest](c) {
		if ev, ok := req.Event.(domain.DeviceAvailabilityUpdateEvent); ok {
			events = append(events, ev)
		}
	}
	return events
}

func attributeEvents(c *collector, id string) int {
	count := 0
	for _, req := range collected[domain.PublishSensorUpdateRequest](c) {
		if ev, ok := req.Event.(domain.SensorAttributesUpdateEvent); ok && ev.Id == id {
			count++
		}
	}
	return count
}

func TestStationActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.MQTT.HADiscoveryEnable = true
	cfg.Listener.Port = freeUDPPort(t)
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	root := as.Root

	mqtt := &collector{}
	mqttPID := root.Spawn(mqtt.props())

	entry := domain.ConfigEntry{Id: "entry-1", Title: "WeatherFlow (127.0.0.1)", Host: "127.0.0.1"}
	pid := root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewStationActor(&cfg, entry, mqttPID, logger)
	}))

	res, err := root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.True(res.(domain.ActorHealthResponse).Healthy)

	sendUDP(t, cfg.Listener.Port, testObservation)

	assert.Eventually(func() bool {
		return len(collected[domain.PublishDiscoveryRequest](mqtt)) == 1
	}, 5*time.Second, 50*time.Millisecond)

	discovery := collected[domain.PublishDiscoveryRequest](mqtt)[0]
	assert.NotEmpty(discovery.Sensors)
	for _, s := range discovery.Sensors {
		assert.Equal("smartweatherudp_ST-00000512", s.Device.Id)
		assert.Equal("Backyard", s.Device.SuggestedArea)
	}

	assert.Eventually(func() bool {
		for _, req := range collected[domain.PublishSensorUpdateRequest](mqtt) {
			if ev, ok := req.Event.(domain.TextSensorUpdateEvent); ok && ev.Id == "smartweatherudp_ST-00000512_air_temperature" {
				return ev.Value == "22.37"
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(func() bool {
		return attributeEvents(mqtt, "smartweatherudp_ST-00000512_rain_accumulation") == 1 &&
			attributeEvents(mqtt, "smartweatherudp_ST-00000512_air_temperature") == 1
	}, 5*time.Second, 50*time.Millisecond)

	events := availabilityEvents(mqtt)
	require.Len(t, events, 1)
	assert.True(events[0].Online)

	// the observation is from 2020, far older than the stale limit
	root.Send(pid, domain.AvailabilityTick{StaleAfterSeconds: 60})
	assert.Eventually(func() bool {
		return len(availabilityEvents(mqtt)) == 2
	}, 5*time.Second, 50*time.Millisecond)
	assert.False(availabilityEvents(mqtt)[1].Online)

	// unchanged availability is not republished
	root.Send(pid, domain.AvailabilityTick{StaleAfterSeconds: 60})

	res, err = root.RequestFuture(pid, domain.ListStationDevicesRequest{EntryId: entry.Id}, 2*time.Second).Result()
	require.NoError(t, err)
	listed := res.(domain.ListStationDevicesResponse)
	assert.Equal(entry.Id, listed.EntryId)
	assert.Len(listed.Sensors, len(discovery.Sensors))
	assert.Len(availabilityEvents(mqtt), 2)
	// attributes of accumulating sensors are sent once at attach
	assert.Equal(1, attributeEvents(mqtt, "smartweatherudp_ST-00000512_rain_accumulation"))

	root.Send(pid, retireStation{})
	assert.Eventually(func() bool {
		return len(collected[domain.ClearDiscoveryRequest](mqtt)) == 1
	}, 5*time.Second, 50*time.Millisecond)

	// the listener port is released after stop
	assert.Eventually(func() bool {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: cfg.Listener.Port})
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 50*time.Millisecond)
}
