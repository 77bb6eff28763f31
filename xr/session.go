package xr

// SessionState follows the lifecycle of the runtime session.
type SessionState int

const (
	SessionUnknown SessionState = iota
	SessionIdle
	SessionReady
	SessionRunning
	SessionStopping
	SessionLossPending
	SessionExiting
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionReady:
		return "ready"
	case SessionRunning:
		return "running"
	case SessionStopping:
		return "stopping"
	case SessionLossPending:
		return "loss-pending"
	case SessionExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Phase is the position of the driver within the frame protocol.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitialized
	PhaseFrameWaited
	PhaseFrameBegun
	PhaseViewsLocated
	PhaseFrameSubmitted
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "initialized"
	case PhaseFrameWaited:
		return "frame-waited"
	case PhaseFrameBegun:
		return "frame-begun"
	case PhaseViewsLocated:
		return "views-located"
	case PhaseFrameSubmitted:
		return "frame-submitted"
	case PhaseStopped:
		return "stopped"
	default:
		return "uninitialized"
	}
}

// waiting reports whether the next frame call must be WaitFrame.
func (p Phase) waiting() bool {
	return p == PhaseInitialized || p == PhaseFrameSubmitted
}
