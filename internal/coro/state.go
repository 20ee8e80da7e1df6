package coro

// state is the lifecycle of a coroutine handle:
//
//	pending → running → finished     → joining → released   (owner frees)
//	          running → selfDetached              → released   (SelfDone)
//
// An owner may also join straight from running. Transitions are CAS on
// Coroutine.state, and the finalize path is chosen by the state observed at
// release time, so the two release paths cannot both run for one handle. A
// SelfDone that loses the race to joining is a no-op.
type state int32

const (
	statePending state = iota
	stateRunning
	stateFinished
	stateSelfDetached
	stateJoining
	stateReleased
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateRunning:
		return "running"
	case stateFinished:
		return "finished"
	case stateSelfDetached:
		return "self-detached"
	case stateJoining:
		return "joining"
	case stateReleased:
		return "released"
	default:
		return "unknown"
	}
}
