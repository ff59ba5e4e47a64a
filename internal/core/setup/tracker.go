package setup

import "sync"

// Tracker keeps the setup flows currently in progress.
type Tracker struct {
	mu    sync.Mutex
	flows map[string]func()
}

func NewTracker() *Tracker {
	return &Tracker{flows: make(map[string]func())}
}

// Register adds a flow with the function that aborts it.
func (t *Tracker) Register(id string, abort func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flows[id] = abort
}

func (t *Tracker) Unregister(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.flows, id)
}

// Others counts the in-progress flows other than id.
func (t *Tracker) Others(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for other := range t.flows {
		if other != id {
			n++
		}
	}
	return n
}

// AbortOthers unregisters and aborts every flow except id.
func (t *Tracker) AbortOthers(id string) int {
	t.mu.Lock()
	var aborts []func()
	for other, abort := range t.flows {
		if other != id {
			aborts = append(aborts, abort)
			delete(t.flows, other)
		}
	}
	t.mu.Unlock()

	for _, abort := range aborts {
		if abort != nil {
			abort()
		}
	}
	return len(aborts)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flows)
}
