package realtime

// Status is the notifier's connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	// StatusConnected means the last status request succeeded.
	StatusConnected Status = "connected"
	// StatusPolling means the poll loop runs but the last request failed.
	StatusPolling Status = "polling"
	// StatusError means the failure budget is spent and polling stopped.
	StatusError Status = "error"
)

var transitions = map[Status][]Status{
	StatusDisconnected: {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusPolling, StatusError, StatusDisconnected},
	StatusConnected:    {StatusPolling, StatusError, StatusConnecting, StatusDisconnected},
	StatusPolling:      {StatusConnected, StatusError, StatusConnecting, StatusDisconnected},
	StatusError:        {StatusConnecting, StatusConnected, StatusDisconnected},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Working reports whether updates are being received or retried.
func (s Status) Working() bool {
	return s == StatusConnected || s == StatusPolling
}
