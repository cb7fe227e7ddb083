package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/bus"
)

// State is a daemon runtime state.
type State string

const (
	Booting      State = "BOOTING"
	AuthRequired State = "AUTH_REQUIRED"
	Connecting   State = "CONNECTING"
	Syncing      State = "SYNCING"
	Ready        State = "READY"
	Reconnecting State = "RECONNECTING"
	Degraded     State = "DEGRADED"
	Error        State = "ERROR"
)

// transitions lists, per state, which states the daemon may move to next.
// Degraded may return straight to Ready: a relay hiccup does not force a
// resync.
var transitions = map[State][]State{
	Booting:      {AuthRequired, Connecting, Error},
	AuthRequired: {Connecting, Error},
	Connecting:   {Syncing, AuthRequired, Reconnecting, Error},
	Syncing:      {Ready, Reconnecting, Degraded, Error},
	Ready:        {Reconnecting, Degraded, AuthRequired, Error},
	Reconnecting: {Connecting, Degraded, Error},
	Degraded:     {Connecting, Reconnecting, Ready, Error},
	Error:        {Booting},
}

// StatusChange is the payload carried on relay status events.
type StatusChange struct {
	From State
	To   State
}

// Machine holds the daemon's current runtime state and enforces the
// transition table. Every successful transition is announced on the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine in the Booting state. b may be nil, in
// which case transitions are silent.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Booting, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves the machine to the given state. The current state is
// left untouched when the transition table forbids the move.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(transitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}

	from := m.current
	m.current = to

	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindRelayStatus,
			Timestamp: time.Now(),
			Payload:   StatusChange{From: from, To: to},
		})
	}
	return nil
}
