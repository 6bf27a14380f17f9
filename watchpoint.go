package changewatch

// watchPointStatus mirrors the WatchPoint lifecycle from spec.md §3. Each
// platform's run loop owns transitions for its own watch points; no
// platform exposes this type publicly since WatchPoint itself is an
// internal resource, not part of the public contract.
type watchPointStatus int

const (
	watchPointUninitialized watchPointStatus = iota
	watchPointListening
	watchPointNotListening
	watchPointFailedToListen
	watchPointFinished
)

func (s watchPointStatus) String() string {
	switch s {
	case watchPointListening:
		return "LISTENING"
	case watchPointNotListening:
		return "NOT_LISTENING"
	case watchPointFailedToListen:
		return "FAILED_TO_LISTEN"
	case watchPointFinished:
		return "FINISHED"
	default:
		return "UNINITIALIZED"
	}
}
