// Package netmon exposes connectivity as a tri-state the sync engine consumes:
// connected or not, and whether the wider internet is confirmed reachable.
// Unknown reachability counts as online so that networks which cannot confirm
// reachability never block sync forever; a wrong guess just feeds the normal
// retry path.
package netmon

import (
	"sync"
	"time"

	"github.com/lucasvidela/chatsync/internal/bus"
)

// Reachability is the second half of the tri-state.
type Reachability int

const (
	ReachUnknown Reachability = iota
	ReachYes
	ReachNo
)

// State is a point-in-time connectivity snapshot.
type State struct {
	Connected    bool
	Reachability Reachability
}

// Online reports whether the engine should attempt remote calls. Unknown
// reachability is provisionally online.
func (s State) Online() bool {
	return s.Connected && s.Reachability != ReachNo
}

// Monitor is the connectivity source consumed by the engine and the facade.
type Monitor interface {
	Current() State
	// Subscribe returns a channel receiving every state transition and an
	// unsubscribe function. The channel never blocks the publisher.
	Subscribe(buf int) (<-chan State, func())
}

// Manual is a Monitor whose state is set by the caller: the production prober
// drives one, and tests drive it directly.
type Manual struct {
	mu    sync.RWMutex
	state State
	subs  map[int]chan State
	next  int
	bus   *bus.Bus
}

// NewManual creates a monitor with the given initial state. The bus is
// optional; when present, online flips publish net.up / net.down events.
func NewManual(initial State, b *bus.Bus) *Manual {
	return &Manual{
		state: initial,
		subs:  make(map[int]chan State),
		bus:   b,
	}
}

// Current returns the latest state.
func (m *Manual) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers a transition listener.
func (m *Manual) Subscribe(buf int) (<-chan State, func()) {
	ch := make(chan State, buf)
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Set publishes a new state. Identical states are coalesced.
func (m *Manual) Set(s State) {
	m.mu.Lock()
	prev := m.state
	if prev == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	subs := make([]chan State, 0, len(m.subs))
	for _, ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}

	if m.bus != nil && prev.Online() != s.Online() {
		kind := "net.down"
		if s.Online() {
			kind = "net.up"
		}
		m.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: s})
	}
}
