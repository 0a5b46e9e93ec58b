package dispatch

// State is the lifecycle state of the client's single connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Sink receives decoded notifications. All calls come from the client's
// event loop goroutine, one at a time, in the order events happened.
// Implementations must not call back into the Client synchronously.
type Sink interface {
	OnStateChange(State)
	OnSystemNotice(text string)
	OnChatNotice(user, text string, isOwn bool)
	// OnValidationError feeds the connect form's error surface: bad input
	// and connection failures.
	OnValidationError(text string)
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) OnStateChange(State) {}
func (NopSink) OnSystemNotice(string) {}
func (NopSink) OnChatNotice(string, string, bool) {}
func (NopSink) OnValidationError(string) {}
