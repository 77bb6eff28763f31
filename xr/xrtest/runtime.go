// Package xrtest provides a scripted xr.Runtime that records every call.
package xrtest

import (
	"errors"
	"slices"
	"time"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/xr"
)

var ErrInjected = errors.New("injected runtime failure")

// Runtime answers like a head mounted display with two eyes. Images of the
// swapchains are real textures of Device. Fail makes the named call return
// ErrInjected.
type Runtime struct {
	Device pulse.Device

	Calls  []string
	Events []xr.Event

	Extensions  []string
	Configs     []xr.ViewConfig
	Views       []xr.View
	FrameState  xr.FrameState
	ImageCount int

	// Fail holds the names of calls that fail, for example "WaitFrame".
	Fail map[string]bool

	// FailAcquire makes image acquisition fail for single swapchains.
	FailAcquire map[xr.Swapchain]bool

	// FailWait makes waiting for an image fail for single swapchains.
	FailWait map[xr.Swapchain]bool

	// FailReferenceSpace makes creation of the given reference space kinds fail.
	FailReferenceSpace map[xr.ReferenceSpace]bool

	Instance   xr.InstanceInfo
	Spaces     []xr.Space
	Swapchains []xr.Swapchain
	Images     map[xr.Swapchain][]pulse.TextureHandle
	Ended      []xr.FrameEnd

	nextHandle uintptr
}

var _ xr.Runtime = (*Runtime)(nil)

// EyeView returns an eye at the given position looking down -z with a
// symmetric field of view of the given half angle.
func EyeView(position glm.Vec3f, halfAngle glm.Rad) xr.View {
	return xr.View{
		Pose: xr.Pose{
			Orientation: glm.IdentityQuaternion[float32](),
			Position:    position,
		},
		Fov: glm.Fov{
			AngleLeft:  -halfAngle,
			AngleRight: halfAngle,
			AngleUp:    halfAngle,
			AngleDown:  -halfAngle,
		},
	}
}

func New(dev pulse.Device) *Runtime {
	return &Runtime{
		Device:     dev,
		Extensions: []string{xr.GraphicsOpenGL.RequiredExtension()},
		Configs: []xr.ViewConfig{
			{RecommendedWidth: 64, RecommendedHeight: 32, RecommendedSampleCount: 1},
			{RecommendedWidth: 64, RecommendedHeight: 32, RecommendedSampleCount: 1},
		},
		Views: []xr.View{
			EyeView(glm.Vec3f{-0.032, 1.6, 0}, 0.5),
			EyeView(glm.Vec3f{0.032, 1.6, 0}, 0.5),
		},
		FrameState: xr.FrameState{
			PredictedDisplayTime:   1000,
			PredictedDisplayPeriod: 11 * time.Millisecond,
			ShouldRender:           true,
		},
		ImageCount:        3,
		Fail:               map[string]bool{},
		FailAcquire:        map[xr.Swapchain]bool{},
		FailWait:           map[xr.Swapchain]bool{},
		FailReferenceSpace: map[xr.ReferenceSpace]bool{},
		Images:             map[xr.Swapchain][]pulse.TextureHandle{},
	}
}

// Count returns how often call was made.
func (r *Runtime) Count(call string) int {
	var n int
	for _, c := range r.Calls {
		if c == call {
			n++
		}
	}

	return n
}

// Push queues session state changes for the next PollEvent calls.
func (r *Runtime) Push(states ...xr.SessionState) {
	for _, state := range states {
		r.Events = append(r.Events, xr.Event{Type: xr.EventSessionStateChanged, State: state})
	}
}

func (r *Runtime) call(name string) error {
	r.Calls = append(r.Calls, name)

	if r.Fail[name] {
		return ErrInjected
	}

	return nil
}

func (r *Runtime) handle() uintptr {
	r.nextHandle++
	return r.nextHandle
}

func (r *Runtime) EnumerateExtensions() ([]string, error) {
	if err := r.call("EnumerateExtensions"); err != nil {
		return nil, err
	}

	return slices.Clone(r.Extensions), nil
}

func (r *Runtime) CreateInstance(info xr.InstanceInfo) (xr.Instance, error) {
	if err := r.call("CreateInstance"); err != nil {
		return 0, err
	}

	r.Instance = info

	return xr.Instance(r.handle()), nil
}

func (r *Runtime) GetSystem(xr.Instance) (xr.SystemID, error) {
	if err := r.call("GetSystem"); err != nil {
		return 0, err
	}

	return xr.SystemID(r.handle()), nil
}

func (r *Runtime) GraphicsRequirements(xr.Instance, xr.SystemID) error {
	return r.call("GraphicsRequirements")
}

func (r *Runtime) CreateSession(xr.Instance, xr.SystemID, xr.GraphicsAPI) (xr.Session, error) {
	if err := r.call("CreateSession"); err != nil {
		return 0, err
	}

	return xr.Session(r.handle()), nil
}

func (r *Runtime) CreateReferenceSpace(_ xr.Session, kind xr.ReferenceSpace) (xr.Space, error) {
	if err := r.call("CreateReferenceSpace"); err != nil {
		return 0, err
	}

	if r.FailReferenceSpace[kind] {
		return 0, ErrInjected
	}

	space := xr.Space(r.handle())
	r.Spaces = append(r.Spaces, space)

	return space, nil
}

func (r *Runtime) ViewConfigurations(xr.Instance, xr.SystemID) ([]xr.ViewConfig, error) {
	if err := r.call("ViewConfigurations"); err != nil {
		return nil, err
	}

	return slices.Clone(r.Configs), nil
}

func (r *Runtime) CreateSwapchain(_ xr.Session, info xr.SwapchainInfo) (xr.Swapchain, error) {
	if err := r.call("CreateSwapchain"); err != nil {
		return 0, err
	}

	swapchain := xr.Swapchain(r.handle())
	r.Swapchains = append(r.Swapchains, swapchain)

	return swapchain, nil
}

func (r *Runtime) EnumerateSwapchainImages(swapchain xr.Swapchain) ([]pulse.TextureHandle, error) {
	if err := r.call("EnumerateSwapchainImages"); err != nil {
		return nil, err
	}

	config := r.Configs[0]

	var images []pulse.TextureHandle
	for range r.ImageCount {
		tex, err := r.Device.CreateTexture(pulse.FormatSRGB8Alpha8, config.RecommendedWidth, config.RecommendedHeight)
		if err != nil {
			return nil, err
		}

		images = append(images, tex)
	}

	r.Images[swapchain] = images

	return slices.Clone(images), nil
}

func (r *Runtime) PollEvent(xr.Instance) (xr.Event, bool, error) {
	if err := r.call("PollEvent"); err != nil {
		return xr.Event{}, false, err
	}

	if len(r.Events) == 0 {
		return xr.Event{}, false, nil
	}

	event := r.Events[0]
	r.Events = r.Events[1:]

	return event, true, nil
}

func (r *Runtime) BeginSession(xr.Session) error {
	return r.call("BeginSession")
}

func (r *Runtime) EndSession(xr.Session) error {
	return r.call("EndSession")
}

func (r *Runtime) WaitFrame(xr.Session) (xr.FrameState, error) {
	if err := r.call("WaitFrame"); err != nil {
		return xr.FrameState{}, err
	}

	return r.FrameState, nil
}

func (r *Runtime) BeginFrame(xr.Session) error {
	return r.call("BeginFrame")
}

func (r *Runtime) LocateViews(xr.Session, xr.Space, xr.Time) ([]xr.View, error) {
	if err := r.call("LocateViews"); err != nil {
		return nil, err
	}

	return slices.Clone(r.Views), nil
}

func (r *Runtime) EndFrame(_ xr.Session, end xr.FrameEnd) error {
	if err := r.call("EndFrame"); err != nil {
		return err
	}

	r.Ended = append(r.Ended, end)

	return nil
}

// AcquireSwapchainImage always hands out image one.
func (r *Runtime) AcquireSwapchainImage(swapchain xr.Swapchain) (uint32, error) {
	if err := r.call("AcquireSwapchainImage"); err != nil {
		return 0, err
	}

	if r.FailAcquire[swapchain] {
		return 0, ErrInjected
	}

	return 1, nil
}

func (r *Runtime) WaitSwapchainImage(swapchain xr.Swapchain, _ time.Duration) error {
	if err := r.call("WaitSwapchainImage"); err != nil {
		return err
	}

	if r.FailWait[swapchain] {
		return ErrInjected
	}

	return nil
}

func (r *Runtime) ReleaseSwapchainImage(xr.Swapchain) error {
	return r.call("ReleaseSwapchainImage")
}

func (r *Runtime) DestroySwapchain(xr.Swapchain) error {
	return r.call("DestroySwapchain")
}

func (r *Runtime) DestroySpace(xr.Space) error {
	return r.call("DestroySpace")
}

func (r *Runtime) DestroySession(xr.Session) error {
	return r.call("DestroySession")
}

func (r *Runtime) DestroyInstance(xr.Instance) error {
	return r.call("DestroyInstance")
}
