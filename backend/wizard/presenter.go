package wizard

import (
	"sync"

	"github.com/SpikeIreland/clarence-sub004/backend/pathway"
)

// Presenter holds at most one pending transition: the descriptor that
// explains the routing decision plus the resolved destination. There is
// no timeout; the user must act on it.
type Presenter struct {
	mu          sync.Mutex
	active      *pathway.TransitionDescriptor
	destination string
}

// Present replaces any held transition.
func (p *Presenter) Present(descriptor pathway.TransitionDescriptor, destination string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := descriptor
	p.active = &d
	p.destination = destination
}

// Active returns the held transition, if any.
func (p *Presenter) Active() (pathway.TransitionDescriptor, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return pathway.TransitionDescriptor{}, "", false
	}
	return *p.active, p.destination, true
}

// Continue is the only way out: it yields the stored destination and
// clears the held state.
func (p *Presenter) Continue() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return "", false
	}
	destination := p.destination
	p.active = nil
	p.destination = ""
	return destination, true
}
