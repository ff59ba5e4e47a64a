package actor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/weatherflow2mqtt/internal/adapter/actor"
	"github.com/berfenger/weatherflow2mqtt/internal/config"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/core/port"
	"github.com/berfenger/weatherflow2mqtt/internal/core/setup"
	. "github.com/berfenger/weatherflow2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const storeTimeout = 5 * time.Second

var ErrStationNotFound = errors.New("no station running for this entry")

type MQTTActorProvider func() *adactor.MQTTActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	mqttActor          *actor.PID
	stations           map[string]*actor.PID
	store              port.EntryStore
	prober             setup.Prober
	tracker            *setup.Tracker
	legacy             []domain.ImportConfig
	watchdog           *Watchdog
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	expected       int
	checksReceived int
	respondTo      *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, store port.EntryStore, prober setup.Prober, legacy []domain.ImportConfig,
	mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		stations:          make(map[string]*actor.PID),
		store:             store,
		prober:            prober,
		tracker:           setup.NewTracker(),
		legacy:            legacy,
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset(0)

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		// start one station per stored entry
		storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		entries, err := state.store.List(storeCtx)
		cancel()
		if err != nil {
			panic(err)
		}
		for _, entry := range entries {
			if _, err := state.startStationActor(ctx, entry); err != nil {
				state.logger.Error("master@starting could not start station", zap.String("entry", entry.Id), zap.Error(err))
			}
		}

		// import legacy platform configs once
		for _, cfg := range state.legacy {
			state.startSetupFlow(ctx, domain.ImportRequest{Config: cfg}, nil)
		}
		state.legacy = nil

		// availability watchdog
		if state.config.Availability.CheckIntervalSeconds > 0 {
			root := ctx.ActorSystem().Root
			self := ctx.Self()
			staleAfter := state.config.Availability.StaleAfterSeconds
			state.watchdog = NewWatchdog(time.Duration(state.config.Availability.CheckIntervalSeconds)*time.Second, func() {
				root.Send(self, domain.AvailabilityTick{StaleAfterSeconds: staleAfter})
			}, state.logger)
			if err := state.watchdog.Start(); err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(1 + len(state.stations))
		state.currentHealthCheck.respondTo = ctx.Sender()
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Station Actor Requests
		for entryId, pid := range state.stations {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      entryId,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.SetupRequest:
		state.logger.Debug("master@default SetupRequest")
		state.startSetupFlow(ctx, msg, ForRequest(msg).ReplyTo(ctx))
	case domain.ImportRequest:
		state.logger.Debug("master@default ImportRequest", zap.String("host", msg.Config.Host))
		state.startSetupFlow(ctx, msg, ForRequest(msg).ReplyTo(ctx))
	case flowCompleted:
		state.logger.Debug("master@default flowCompleted", zap.String("title", msg.Result.Title))
		resp := state.createEntry(ctx, msg.Result)
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, resp)
		}
	case domain.ListEntriesRequest:
		state.logger.Debug("master@default ListEntriesRequest")
		storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		entries, err := state.store.List(storeCtx)
		cancel()
		ForRequest(msg).Respond(ctx, domain.ListEntriesResponse{
			ActorResponseMixIn: domain.ResponseError(err),
			Entries:            entries,
		})
	case domain.RemoveEntryRequest:
		state.logger.Debug("master@default RemoveEntryRequest", zap.String("id", msg.Id))
		storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		removed, err := state.store.Delete(storeCtx, msg.Id)
		cancel()
		if pid, ok := state.stations[msg.Id]; ok && err == nil {
			ctx.Send(pid, retireStation{})
			delete(state.stations, msg.Id)
		}
		ForRequest(msg).Respond(ctx, domain.RemoveEntryResponse{
			ActorResponseMixIn: domain.ResponseError(err),
			Removed:            removed,
		})
	case domain.ListStationDevicesRequest:
		state.logger.Debug("master@default ListStationDevicesRequest", zap.String("entry", msg.EntryId))
		pid, ok := state.stations[msg.EntryId]
		if !ok {
			ForRequest(msg).Respond(ctx, domain.ListStationDevicesResponse{
				ActorResponseMixIn: domain.ResponseError(ErrStationNotFound),
				EntryId:            msg.EntryId,
			})
			return
		}
		ctx.Forward(pid)
	case domain.AvailabilityTick:
		for _, pid := range state.stations {
			ctx.Send(pid, msg)
		}
	case *actor.Terminated:
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("master@default mqtt terminated")
			panic(errors.New("mqtt terminated"))
		}
		for entryId, pid := range state.stations {
			if pid.Equal(msg.Who) {
				state.logger.Warn("master@default station terminated", zap.String("entry", entryId))
				delete(state.stations, entryId)
			}
		}
	case *actor.Stopping:
		if state.watchdog != nil {
			state.watchdog.Stop()
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if state.currentHealthCheck.allReceived() {

			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	case *actor.Stopping:
		if state.watchdog != nil {
			state.watchdog.Stop()
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startSetupFlow(ctx actor.Context, request any, replyTo *actor.PID) {
	flow := &setup.Flow{
		Id:          uuid.New().String(),
		Hosts:       state.store,
		Probe:       state.prober,
		Tracker:     state.tracker,
		DefaultHost: state.config.Listener.Host,
	}

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for setup flow. reason: %v", reason)
		return actor.StopDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSetupFlowActor(flow, request, replyTo, ctx.Self(), state.logger)
	}, actor.WithSupervisor(supervisor))
	if _, err := ctx.SpawnNamed(props, fmt.Sprintf("%s-%s", domain.ACTOR_ID_SETUP, flow.Id)); err != nil {
		state.logger.Error("master@default could not start setup flow", zap.Error(err))
		if replyTo != nil {
			ctx.Send(replyTo, domain.SetupResponse{ActorResponseMixIn: domain.ResponseError(err)})
		}
	}
}

func (state *MasterOfPuppetsActor) createEntry(ctx actor.Context, result domain.FlowResult) domain.SetupResponse {
	data := domain.EntryData{}
	if result.Data != nil {
		data = *result.Data
	}
	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	entry, err := state.store.Create(storeCtx, result.Title, result.Source, data)
	cancel()
	if errors.Is(err, port.ErrDuplicateHost) {
		return domain.SetupResponse{Result: domain.FlowResult{
			FlowId: result.FlowId,
			Type:   domain.RESULT_TYPE_ABORT,
			Reason: setup.ABORT_SINGLE_INSTANCE_ALLOWED,
		}}
	}
	if err != nil {
		state.logger.Error("master@default could not create entry", zap.Error(err))
		return domain.SetupResponse{ActorResponseMixIn: domain.ResponseError(err)}
	}

	if _, err := state.startStationActor(ctx, entry); err != nil {
		state.logger.Error("master@default could not start station", zap.String("entry", entry.Id), zap.Error(err))
	}
	result.Entry = &entry
	return domain.SetupResponse{Result: result}
}

func (state *MasterOfPuppetsActor) startStationActor(ctx actor.Context, entry domain.ConfigEntry) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(60*time.Second, 1*time.Second)

	stationProps := actor.PropsFromProducer(func() actor.Actor {
		return NewStationActor(&state.config, entry, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	stationPID, err := ctx.SpawnNamed(stationProps, fmt.Sprintf("%s-%s", domain.ACTOR_ID_STATION, entry.Id))
	if err != nil {
		return nil, err
	}
	state.stations[entry.Id] = stationPID

	return stationPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, HADISCOVERY_ACTOR_ID)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset(expected int) {
	state.healthy = make(map[string]bool)
	state.expected = expected
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	if len(state.healthy) < state.expected {
		return false
	}
	for _, healthy := range state.healthy {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
