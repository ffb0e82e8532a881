package session

import "encoding/json"

// State is the lifecycle position of a session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSimulating
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateSimulating:
		return "SIMULATING"
	case StatePaused:
		return "PAUSED"
	}
	return "UNKNOWN"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Online reports whether the transport is up in this state.
func (s State) Online() bool {
	return s == StateConnected || s == StateSimulating || s == StatePaused
}

// Connection indicator values.
const (
	IndicatorConnected    = "connected"
	IndicatorDisconnected = "disconnected"
	IndicatorError        = "error"
)

// Status is a point-in-time view of the session. Err holds the last
// transport or simulation error and is cleared by the next successful
// connect or run start.
type Status struct {
	State     State  `json:"state"`
	Indicator string `json:"indicator"`
	Err       string `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func newStatus(state State, errMsg, detail string) Status {
	ind := IndicatorDisconnected
	switch {
	case state.Online():
		ind = IndicatorConnected
	case errMsg != "":
		ind = IndicatorError
	}
	return Status{State: state, Indicator: ind, Err: errMsg, Detail: detail}
}
