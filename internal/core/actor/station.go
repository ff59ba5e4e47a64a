package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/config"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/core/sensor"
	. "github.com/berfenger/weatherflow2mqtt/internal/util/actorutil"
	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// StationActor owns the listener and the sensor entities of one entry.
type StationActor struct {
	behavior actor.Behavior
	stash    *Stash

	config       *config.Config
	entry        domain.ConfigEntry
	mqttActor    *actor.PID
	descriptions []sensor.Description
	listener     *weatherflow.Listener
	entities     map[string][]*sensor.Entity
	online       map[string]bool
	cancel       func()

	logger *zap.Logger
}

type deviceDiscovered struct {
	device weatherflow.Device
}

type entityUpdated struct {
	entity *sensor.Entity
}

// retireStation removes the discovery configs of the station and stops it.
type retireStation struct {
}

func NewStationActor(config *config.Config, entry domain.ConfigEntry, mqttActor *actor.PID, logger *zap.Logger) *StationActor {
	act := &StationActor{
		config:       config,
		entry:        entry,
		mqttActor:    mqttActor,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		descriptions: sensor.Descriptions(),
		entities:     make(map[string][]*sensor.Entity),
		online:       make(map[string]bool),
		logger:       ActorLogger(fmt.Sprintf("%s/%s", domain.ACTOR_ID_STATION, entry.Id), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *StationActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *StationActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("station@starting started", zap.String("host", state.entry.Host))

		// listener callbacks run on the listener goroutine
		root := ctx.ActorSystem().Root
		self := ctx.Self()

		state.listener = weatherflow.NewListener(state.entry.Host,
			weatherflow.WithPort(state.config.Listener.Port),
			weatherflow.WithLogger(state.logger))
		state.cancel = state.listener.On(weatherflow.EVENT_DEVICE_DISCOVERED, func(d weatherflow.Device) {
			root.Send(self, deviceDiscovered{device: d})
		})
		if err := state.listener.Start(context.Background()); err != nil {
			// let the supervisor retry
			state.logger.Error("station@starting could not start listener", zap.Error(err))
			panic(err)
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("station@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *StationActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("station@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.entry.Id,
			Healthy: state.listener.IsListening(),
			State:   fmt.Sprintf("%d devices", len(state.entities)),
		})
	case deviceDiscovered:
		state.onDeviceDiscovered(ctx, msg.device)
	case entityUpdated:
		state.publishEntity(ctx, msg.entity)
	case domain.AvailabilityTick:
		state.checkAvailability(ctx, time.Duration(msg.StaleAfterSeconds)*time.Second)
	case domain.ListStationDevicesRequest:
		ForRequest(msg).Respond(ctx, domain.ListStationDevicesResponse{
			EntryId: state.entry.Id,
			Sensors: state.sensors(),
		})
	case retireStation:
		state.logger.Info("station@default retiring", zap.String("host", state.entry.Host))
		if state.config.MQTT.HADiscoveryEnable {
			ctx.Send(state.mqttActor, domain.ClearDiscoveryRequest{Sensors: state.sensors()})
		}
		ctx.Stop(ctx.Self())
	default:
		state.logger.Debug("station@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *StationActor) onDeviceDiscovered(ctx actor.Context, device weatherflow.Device) {
	serial := device.SerialNumber()
	if _, ok := state.entities[serial]; ok {
		return
	}
	entities := sensor.NewEntities(device, state.descriptions, state.config.Units.IsMetric())
	state.entities[serial] = entities
	state.logger.Info("station@default device discovered",
		zap.String("serial", serial),
		zap.String("model", device.Model()),
		zap.Int("entities", len(entities)))

	if state.config.MQTT.HADiscoveryEnable {
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{Sensors: state.deviceSensors(device, entities)})
	}

	state.online[serial] = true
	ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{
		Event: domain.DeviceAvailabilityUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: serial},
			Online:                 true,
		},
	})

	root := ctx.ActorSystem().Root
	self := ctx.Self()
	for _, e := range entities {
		e.Attach(func(updated *sensor.Entity) {
			root.Send(self, entityUpdated{entity: updated})
		})
		state.publishEntity(ctx, e)
		if e.Description().StateClass != domain.STATE_CLASS_TOTAL {
			ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: e.AttributesEvent()})
		}
	}
}

func (state *StationActor) publishEntity(ctx actor.Context, e *sensor.Entity) {
	ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: e.UpdateEvent()})
	if e.Description().StateClass == domain.STATE_CLASS_TOTAL {
		ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: e.AttributesEvent()})
	}
}

func (state *StationActor) checkAvailability(ctx actor.Context, staleAfter time.Duration) {
	if staleAfter <= 0 {
		return
	}
	for serial, entities := range state.entities {
		if len(entities) == 0 {
			continue
		}
		online := time.Since(entities[0].Device().LastReport()) <= staleAfter
		if state.online[serial] == online {
			continue
		}
		state.online[serial] = online
		state.logger.Info("station@default device availability changed", zap.String("serial", serial), zap.Bool("online", online))
		ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{
			Event: domain.DeviceAvailabilityUpdateEvent{
				SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: serial},
				Online:                 online,
			},
		})
	}
}

func (state *StationActor) deviceSensors(device weatherflow.Device, entities []*sensor.Entity) []domain.GenericSensor {
	bridgeId := domain.BridgeDevice(state.config.MQTT.BaseTopic).Id
	info := sensor.DeviceInfo(device, bridgeId)
	sensors := make([]domain.GenericSensor, 0, len(entities))
	for _, e := range entities {
		sensors = append(sensors, e.GenericSensor(info))
	}
	return sensors
}

func (state *StationActor) sensors() []domain.GenericSensor {
	var sensors []domain.GenericSensor
	for _, entities := range state.entities {
		if len(entities) == 0 {
			continue
		}
		sensors = append(sensors, state.deviceSensors(entities[0].Device(), entities)...)
	}
	return sensors
}

func (state *StationActor) stop() {
	state.logger.Debug("station: stop")
	for _, entities := range state.entities {
		for _, e := range entities {
			e.Detach()
		}
	}
	state.entities = make(map[string][]*sensor.Entity)
	if state.cancel != nil {
		state.cancel()
		state.cancel = nil
	}
	if state.listener != nil {
		state.listener.Stop()
	}
}
