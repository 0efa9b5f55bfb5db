// Package session tracks the lifecycle of the bill analysis a user is working
// on: nothing loaded, extraction in flight, a finished analysis, or a failure.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/theirongolddev/billcheck/internal/model"
)

// ErrInvalidTransition is returned when an event isn't allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// State is a session state.
type State int

// Session states.
const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateEmpty:   {StateLoading},
	StateLoading: {StateReady, StateFailed},
	StateReady:   {StateEmpty, StateLoading},
	StateFailed:  {StateEmpty, StateLoading},
}

// CanTransition reports whether a session may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Snapshot is a consistent view of a session. Analysis is set only when
// Ready and Err only when Failed.
type Snapshot struct {
	State    State
	Analysis *model.BillAnalysis
	Err      string
	Source   string
}

// Observer is called after every successful transition with the previous
// state and the new snapshot.
type Observer func(from State, to Snapshot)

// Machine holds one session. It is safe for concurrent use.
type Machine struct {
	mu       sync.RWMutex
	state    State
	analysis *model.BillAnalysis
	errMsg   string
	source   string
	observer Observer
}

// New returns an empty session. observer may be nil.
func New(observer Observer) *Machine {
	return &Machine{observer: observer}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Analysis returns the current analysis, or nil unless Ready.
func (m *Machine) Analysis() *model.BillAnalysis {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.analysis
}

// Begin starts loading from source, a filename or "manual entry". It is
// allowed from any state but Loading; a previous analysis or error is dropped.
func (m *Machine) Begin(source string) error {
	return m.transition(StateLoading, func() {
		m.analysis = nil
		m.errMsg = ""
		m.source = source
	})
}

// Succeed finishes loading with a.
func (m *Machine) Succeed(a *model.BillAnalysis) error {
	if a == nil {
		return fmt.Errorf("%w: ready without an analysis", ErrInvalidTransition)
	}
	return m.transition(StateReady, func() {
		m.analysis = a
	})
}

// Fail finishes loading with err.
func (m *Machine) Fail(err error) error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return m.transition(StateFailed, func() {
		m.errMsg = msg
	})
}

// Reset discards the analysis or error and returns to Empty.
func (m *Machine) Reset() error {
	return m.transition(StateEmpty, func() {
		m.analysis = nil
		m.errMsg = ""
		m.source = ""
	})
}

func (m *Machine) transition(to State, apply func()) error {
	m.mu.Lock()
	from := m.state
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	apply()
	m.state = to
	snap := m.snapshotLocked()
	obs := m.observer
	m.mu.Unlock()

	if obs != nil {
		obs(from, snap)
	}
	return nil
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:    m.state,
		Analysis: m.analysis,
		Err:      m.errMsg,
		Source:   m.source,
	}
}
