package wizard

import "sync"

// Registry tracks the live machine for each wizard session.
type Registry struct {
	mu       sync.RWMutex
	machines map[string]*Machine
}

func NewRegistry() *Registry {
	return &Registry{machines: make(map[string]*Machine)}
}

func (r *Registry) Add(sessionID string, m *Machine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[sessionID] = m
}

func (r *Registry) Get(sessionID string) *Machine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machines[sessionID]
}

// Remove tears the machine down and drops it from the registry.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	m := r.machines[sessionID]
	delete(r.machines, sessionID)
	r.mu.Unlock()

	if m != nil {
		m.Teardown()
	}
}

// Shutdown tears down every live machine.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	machines := make([]*Machine, 0, len(r.machines))
	for id, m := range r.machines {
		machines = append(machines, m)
		delete(r.machines, id)
	}
	r.mu.Unlock()

	for _, m := range machines {
		m.Teardown()
	}
}
