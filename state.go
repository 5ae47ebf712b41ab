package wsession

import (
	"fmt"
	"time"
)

// State is the lifecycle position of a Coordinator.
//
//	Idle -> Connecting -> Open -> Closing -> Closed
//	                 \        \___________/
//	                  \-------> Closed (failure)
type State byte

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

var allStates = []State{StateIdle, StateConnecting, StateOpen, StateClosing, StateClosed}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", byte(s))
	}
}

// Terminal reports whether no transport handle can exist in this state.
func (s State) Terminal() bool {
	return s == StateClosing || s == StateClosed
}

// Transition describes a single state change. Err holds the failure that
// caused it, if any.
type Transition struct {
	From State
	To   State
	Err  error
	At   time.Time
}

func (t Transition) String() string {
	if t.Err != nil {
		return fmt.Sprintf("%s -> %s (%s)", t.From, t.To, t.Err)
	}
	return fmt.Sprintf("%s -> %s", t.From, t.To)
}

type StateHandler func(Transition)
