package session

// State is the lifecycle state of a Session.
type State int32

const (
	// Created is the state before the native create call returns.
	Created State = iota
	// Active means the session holds a live native handle.
	Active
	// Destroyed is terminal. No operation succeeds in this state.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Active:
		return "active"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
