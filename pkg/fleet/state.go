package fleet

// State represents the lifecycle state of a Fleet.
type State int

const (
	// StateUninitialized is the initial state before New completes.
	StateUninitialized State = iota

	// StateInitialized means the devices are built but not animated.
	StateInitialized

	// StateStarting means Start() has been called and is replaying state.
	StateStarting

	// StateRunning means animations are scheduled.
	StateRunning

	// StateStopping means Stop() has been called and shutdown is in progress.
	StateStopping

	// StateStopped means timers are joined and storage is closed.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsRunning returns true if the fleet is serving.
func (s State) IsRunning() bool {
	return s == StateRunning
}

// CanStart returns true if Start() can be called in this state.
func (s State) CanStart() bool {
	return s == StateInitialized
}

// CanStop returns true if Stop() can be called in this state.
//
// An initialized fleet that was never started can be stopped too, which
// releases its store and journal.
func (s State) CanStop() bool {
	return s.IsRunning() || s == StateInitialized || s == StateStarting
}
