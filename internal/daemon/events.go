package daemon

// Event is a hardware state transition observed by the daemon. Events are
// produced by diffing consecutive snapshots (or by device presence
// changes), consumed once, and discarded.
type Event int

const (
	DeviceArrived Event = iota
	DeviceLeft
	PaperIn
	PaperOut
	ButtonDown
	ButtonUp
)

// String returns the tag passed to the handler script as its first
// positional argument.
func (e Event) String() string {
	switch e {
	case DeviceArrived:
		return "device-arrived"
	case DeviceLeft:
		return "device-left"
	case PaperIn:
		return "paper-in"
	case PaperOut:
		return "paper-out"
	case ButtonDown:
		return "button-down"
	case ButtonUp:
		return "button-up"
	}
	return "unknown"
}
