package pipeline

// State is a step of one call. Every call ends in Done.
type State int

const (
	StateInit State = iota
	StateRequestNotified
	StateResolving
	StateResolved
	StateUnresolved
	StateSending
	StateResponseReceived
	StateClassified
	StateResponseNotified
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRequestNotified:
		return "request_notified"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateUnresolved:
		return "unresolved"
	case StateSending:
		return "sending"
	case StateResponseReceived:
		return "response_received"
	case StateClassified:
		return "classified"
	case StateResponseNotified:
		return "response_notified"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StateTrace receives every state a call enters, in order.
type StateTrace func(operation, requestID string, s State)
