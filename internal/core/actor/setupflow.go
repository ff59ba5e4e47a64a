package actor

import (
	"context"
	"fmt"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/core/setup"
	. "github.com/berfenger/weatherflow2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const ABORT_FLOW_ABORTED = "aborted"

// SetupFlowActor runs one setup flow. The step runs off the actor goroutine
// so the flow can be aborted while it probes.
type SetupFlowActor struct {
	behavior actor.Behavior

	flow    *setup.Flow
	request any
	replyTo *actor.PID
	master  *actor.PID
	task    *SafeBackgroundTask[flowStepResult]
	replied bool

	logger *zap.Logger
}

type flowStepResult struct {
	Result domain.FlowResult
	Error  error
}

// flowCompleted asks the master to persist a create_entry result.
type flowCompleted struct {
	Result  domain.FlowResult
	ReplyTo *actor.PID
}

func NewSetupFlowActor(flow *setup.Flow, request any, replyTo *actor.PID, master *actor.PID, logger *zap.Logger) *SetupFlowActor {
	act := &SetupFlowActor{
		flow:     flow,
		request:  request,
		replyTo:  replyTo,
		master:   master,
		behavior: actor.NewBehavior(),
		logger:   ActorLogger(fmt.Sprintf("%s/%s", domain.ACTOR_ID_SETUP, flow.Id), logger),
	}
	act.behavior.Become(act.RunningReceive)
	return act
}

func (state *SetupFlowActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SetupFlowActor) RunningReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("setup@running started", zap.String("request", fmt.Sprintf("%T", state.request)))

		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.flow.Tracker.Register(state.flow.Id, func() {
			root.Stop(self)
		})

		request := state.request
		flow := state.flow

		state.task = NewBackgroundTask(ctx, func(flowCtx context.Context) (*flowStepResult, error) {
			var (
				result domain.FlowResult
				err    error
			)
			switch req := request.(type) {
			case domain.SetupRequest:
				result, err = flow.StepUser(flowCtx, req.Host)
			case domain.ImportRequest:
				result, err = flow.StepImport(flowCtx, &req.Config)
			default:
				err = fmt.Errorf("unsupported setup request %T", request)
			}
			return &flowStepResult{Result: result, Error: err}, nil
		}).Recover(func(err error) flowStepResult {
			return flowStepResult{Error: err}
		}).PipeToAsync(self)

	case flowStepResult:
		if msg.Error != nil {
			state.logger.Error("setup@running step failed", zap.Error(msg.Error))
			state.reply(ctx, domain.SetupResponse{ActorResponseMixIn: domain.ResponseError(msg.Error)})
		} else if msg.Result.Type == domain.RESULT_TYPE_CREATE_ENTRY {
			state.logger.Info("setup@running create entry", zap.String("title", msg.Result.Title))
			ctx.Send(state.master, flowCompleted{Result: msg.Result, ReplyTo: state.replyTo})
			state.replied = true
		} else {
			state.logger.Info("setup@running step result", zap.String("type", msg.Result.Type), zap.String("reason", msg.Result.Reason))
			state.reply(ctx, domain.SetupResponse{Result: msg.Result})
		}
		ctx.Stop(ctx.Self())

	case *actor.Stopping:
		if state.task != nil {
			state.task.Cancel()
		}
		state.flow.Tracker.Unregister(state.flow.Id)
		if !state.replied {
			state.logger.Info("setup@running aborted")
			state.reply(ctx, domain.SetupResponse{Result: domain.FlowResult{
				FlowId: state.flow.Id,
				Type:   domain.RESULT_TYPE_ABORT,
				Reason: ABORT_FLOW_ABORTED,
			}})
		}
	}
}

func (state *SetupFlowActor) reply(ctx actor.Context, resp domain.SetupResponse) {
	state.replied = true
	if state.replyTo != nil {
		ctx.Send(state.replyTo, resp)
	}
}
