package manager

// State represents the lifecycle state of the manager.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
	StateClosed  State = "closed"
)
