package sync

import (
	"fmt"
	"slices"
	stdsync "sync"
	"time"

	"github.com/lucasvidela/chatsync/internal/bus"
)

// State represents the drain loop's runtime state.
type State string

const (
	Idle     State = "IDLE"
	Draining State = "DRAINING"
	Stopped  State = "STOPPED"
)

// validTransitions defines allowed state transitions. A drain may only start
// from Idle, and Stopped is terminal: the engine checks the transition into
// Draining and refuses the pass when it fails.
var validTransitions = map[State][]State{
	Idle:     {Draining, Stopped},
	Draining: {Idle, Stopped},
	Stopped:  {},
}

// Machine tracks and enforces engine state transitions.
type Machine struct {
	mu      stdsync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Idle.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Idle, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if the
// transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "sync.state_changed",
			Timestamp: time.Now(),
			Payload:   StateChange{From: from, To: to},
		})
	}
	return nil
}

// StateChange is the payload for state change events.
type StateChange struct {
	From State
	To   State
}
