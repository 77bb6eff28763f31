package xr

import (
	"time"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

type Instance uintptr
type SystemID uint64
type Session uintptr
type Space uintptr
type Swapchain uintptr

// Time is a runtime timestamp in nanoseconds.
type Time int64

// InfiniteTimeout waits without limit.
const InfiniteTimeout time.Duration = -1

type GraphicsAPI int

const (
	GraphicsOpenGL GraphicsAPI = iota
)

// RequiredExtension returns the extension a session bound to the api needs.
func (api GraphicsAPI) RequiredExtension() string {
	switch api {
	case GraphicsOpenGL:
		return "XR_KHR_opengl_enable"
	default:
		return ""
	}
}

type ReferenceSpace int

const (
	ReferenceSpaceView ReferenceSpace = iota + 1
	ReferenceSpaceLocal
	ReferenceSpaceStage
)

type InstanceInfo struct {
	ApplicationName string
	Extensions      []string
}

// ViewConfig is the recommended render size of one view.
type ViewConfig struct {
	RecommendedWidth       uint32
	RecommendedHeight      uint32
	RecommendedSampleCount uint32
}

type SwapchainInfo struct {
	Format pulse.TextureFormat
	Width  uint32
	Height uint32
}

type Pose struct {
	Orientation glm.Quaternionf
	Position    glm.Vec3f
}

// View is the predicted pose and field of view of one eye.
type View struct {
	Pose Pose
	Fov  glm.Fov
}

type FrameState struct {
	PredictedDisplayTime   Time
	PredictedDisplayPeriod time.Duration
	ShouldRender           bool
}

type ProjectionView struct {
	Pose      Pose
	Fov       glm.Fov
	Swapchain Swapchain
	ImageRect pulse.Rectangle2u
}

// ProjectionLayer shows one swapchain sub image per view.
type ProjectionLayer struct {
	Space Space
	Views []ProjectionView
}

type FrameEnd struct {
	DisplayTime Time
	Layers      []ProjectionLayer
}

type EventType int

const (
	EventSessionStateChanged EventType = iota + 1
	EventInstanceLossPending
	EventOther
)

type Event struct {
	Type  EventType
	State SessionState
}

// Runtime is the immersive runtime api the driver talks to. Methods map one
// to one onto the runtime's entry points and must be called from the thread
// owning the graphics context.
type Runtime interface {
	EnumerateExtensions() ([]string, error)
	CreateInstance(info InstanceInfo) (Instance, error)
	GetSystem(instance Instance) (SystemID, error)
	GraphicsRequirements(instance Instance, system SystemID) error
	CreateSession(instance Instance, system SystemID, api GraphicsAPI) (Session, error)
	CreateReferenceSpace(session Session, kind ReferenceSpace) (Space, error)
	ViewConfigurations(instance Instance, system SystemID) ([]ViewConfig, error)

	CreateSwapchain(session Session, info SwapchainInfo) (Swapchain, error)
	EnumerateSwapchainImages(swapchain Swapchain) ([]pulse.TextureHandle, error)

	// PollEvent returns false once the queue is empty.
	PollEvent(instance Instance) (Event, bool, error)
	BeginSession(session Session) error
	EndSession(session Session) error

	WaitFrame(session Session) (FrameState, error)
	BeginFrame(session Session) error
	LocateViews(session Session, space Space, displayTime Time) ([]View, error)
	EndFrame(session Session, end FrameEnd) error

	AcquireSwapchainImage(swapchain Swapchain) (uint32, error)
	WaitSwapchainImage(swapchain Swapchain, timeout time.Duration) error
	ReleaseSwapchainImage(swapchain Swapchain) error

	DestroySwapchain(swapchain Swapchain) error
	DestroySpace(space Space) error
	DestroySession(session Session) error
	DestroyInstance(instance Instance) error
}
