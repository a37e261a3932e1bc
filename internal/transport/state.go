package transport

// State is the connection manager's lifecycle state (§4.C). The Registered
// and Draining refinements from §3's lifecycle live one layer up, in the
// station runtime, since only the station knows whether BootNotification
// was accepted or a stop sequence is in flight.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Open:
		return "Open"
	case Closing:
		return "Closing"
	default:
		return "Unknown"
	}
}
