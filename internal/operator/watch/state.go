package watch

// State is the connection state of a Supervisor.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateReconnecting
	// StateFailed is terminal: the reconnect attempts were exhausted.
	StateFailed
	// StateShutdown is terminal: the supervisor's context was cancelled.
	StateShutdown
)

var stateNames = map[State]string{
	StateDisconnected: "Disconnected",
	StateConnected:    "Connected",
	StateReconnecting: "Reconnecting",
	StateFailed:       "Failed",
	StateShutdown:     "Shutdown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether the supervisor has stopped for good.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateShutdown
}
