package scaffold

import "fmt"

// State is a phase of one generation run.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateResolving
	StateRendering
	StateMaterializing
	StateCompleted
	StateAborted
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateSelecting:     "selecting",
	StateResolving:     "resolving",
	StateRendering:     "rendering",
	StateMaterializing: "materializing",
	StateCompleted:     "completed",
	StateAborted:       "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

var transitions = map[State][]State{
	StateIdle:          {StateSelecting},
	StateSelecting:     {StateResolving},
	StateResolving:     {StateRendering, StateAborted},
	StateRendering:     {StateMaterializing, StateAborted},
	StateMaterializing: {StateCompleted, StateAborted},
}

// CanTransition reports whether the run may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the state of one run and reports each change.
type machine struct {
	state  State
	notify func(from, to State)
}

// to moves the machine. An illegal transition is a bug in the orchestrator
// and panics.
func (m *machine) to(next State) {
	if !CanTransition(m.state, next) {
		panic(fmt.Sprintf("scaffold: illegal transition %s -> %s", m.state, next))
	}
	prev := m.state
	m.state = next
	if m.notify != nil {
		m.notify(prev, next)
	}
}
