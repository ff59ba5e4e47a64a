package weatherflow

import "sync"

// emitter is a named-event callback registry. Every registration returns a
// cancel function; cancelling twice is a no-op.
type emitter[T any] struct {
	mu       sync.Mutex
	nextId   int
	handlers map[string]map[int]func(T)
}

func (e *emitter[T]) on(event string, fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string]map[int]func(T))
	}
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]func(T))
	}
	id := e.nextId
	e.nextId++
	e.handlers[event][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers[event], id)
			if len(e.handlers[event]) == 0 {
				delete(e.handlers, event)
			}
		})
	}
}

// emit calls the handlers outside the lock so that a handler may cancel
// itself or register new handlers.
func (e *emitter[T]) emit(event string, value T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.handlers[event]))
	for _, fn := range e.handlers[event] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (e *emitter[T]) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, hs := range e.handlers {
		n += len(hs)
	}
	return n
}
