package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs a blocking function off the actor goroutine. The
// function receives a context that is cancelled by Cancel.
type SafeBackgroundTask[T any] struct {
	ctx       actor.Context
	fn        func(context.Context) (*T, error)
	taskCtx   context.Context
	cancel    context.CancelFunc
	timeout   *time.Duration
	onError   func(error)
	recover   func(error) T
	onSuccess func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	taskCtx, cancel := context.WithCancel(context.Background())
	return &SafeBackgroundTask[T]{
		ctx:     ctx,
		fn:      fn,
		taskCtx: taskCtx,
		cancel:  cancel,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *SafeBackgroundTask[T]) OnSuccess(fn func(T)) *SafeBackgroundTask[T] {
	t.onSuccess = fn
	return t
}

// Cancel cancels the context handed to the task function. Safe to call more
// than once, before or after the task finished.
func (t *SafeBackgroundTask[T]) Cancel() {
	t.cancel()
}

// PipeToAsync runs the task on its own goroutine and sends the result to pid
// through the root context. OnError callbacks run on that goroutine too.
func (t *SafeBackgroundTask[T]) PipeToAsync(pid *actor.PID) *SafeBackgroundTask[T] {
	root := t.ctx.ActorSystem().Root
	t.onSuccess = func(value T) {
		root.Send(pid, value)
	}
	go t.Run()
	return t
}

func (t *SafeBackgroundTask[T]) Run() {
	defer t.cancel()
	bgFn := io.Eval(func() (*T, error) {
		return t.fn(t.taskCtx)
	})
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	var finalValue *T
	if result.Error != nil {
		if t.recover != nil {
			a := t.recover(result.Error)
			finalValue = &a
		} else if t.onError != nil {
			t.onError(result.Error)
			return
		}
	}
	if finalValue == nil {
		finalValue = &result.Value
	}

	if t.onSuccess != nil {
		t.onSuccess(*finalValue)
	}
}
