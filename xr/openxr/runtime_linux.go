//go:build linux

package openxr

import (
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/xr"
)

var (
	loadOnce sync.Once
	loadErr  error

	xrEnumerateInstanceExtensionProperties func(layer *byte, capacity uint32, count *uint32, props *extensionProperties) int32
	xrCreateInstance                       func(info *instanceCreateInfo, instance *uint64) int32
	xrDestroyInstance                      func(instance uint64) int32
	xrGetInstanceProcAddr                  func(instance uint64, name *byte, fn *uintptr) int32
	xrGetSystem                            func(instance uint64, info *systemGetInfo, system *uint64) int32
	xrCreateSession                        func(instance uint64, info *sessionCreateInfo, session *uint64) int32
	xrDestroySession                       func(session uint64) int32
	xrCreateReferenceSpace                 func(session uint64, info *referenceSpaceCreateInfo, space *uint64) int32
	xrDestroySpace                         func(space uint64) int32
	xrEnumerateViewConfigurationViews      func(instance, system uint64, kind int32, capacity uint32, count *uint32, views *viewConfigurationView) int32
	xrCreateSwapchain                      func(session uint64, info *swapchainCreateInfo, swapchain *uint64) int32
	xrDestroySwapchain                     func(swapchain uint64) int32
	xrEnumerateSwapchainImages             func(swapchain uint64, capacity uint32, count *uint32, images *swapchainImageOpenGL) int32
	xrPollEvent                            func(instance uint64, buffer *eventDataBuffer) int32
	xrBeginSession                         func(session uint64, info *sessionBeginInfo) int32
	xrEndSession                           func(session uint64) int32
	xrWaitFrame                            func(session uint64, info *header, state *frameState) int32
	xrBeginFrame                           func(session uint64, info *header) int32
	xrLocateViews                          func(session uint64, info *viewLocateInfo, state *viewState, capacity uint32, count *uint32, views *view) int32
	xrEndFrame                             func(session uint64, info *frameEndInfo) int32
	xrAcquireSwapchainImage                func(swapchain uint64, info *header, index *uint32) int32
	xrWaitSwapchainImage                   func(swapchain uint64, info *swapchainImageWaitInfo) int32
	xrReleaseSwapchainImage                func(swapchain uint64, info *header) int32

	glXGetCurrentDisplay  func() uintptr
	glXGetCurrentContext  func() uintptr
	glXGetCurrentDrawable func() uintptr
)

func dlopen(names ...string) (uintptr, error) {
	var err error

	for _, name := range names {
		var lib uintptr

		lib, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
	}

	return 0, err
}

func load() error {
	loadOnce.Do(func() {
		loader, err := dlopen("libopenxr_loader.so.1", "libopenxr_loader.so")
		if err != nil {
			loadErr = fmt.Errorf("open openxr loader: %w", err)
			return
		}

		libGL, err := dlopen("libGL.so.1", "libGL.so")
		if err != nil {
			loadErr = fmt.Errorf("open libGL: %w", err)
			return
		}

		purego.RegisterLibFunc(&xrEnumerateInstanceExtensionProperties, loader, "xrEnumerateInstanceExtensionProperties")
		purego.RegisterLibFunc(&xrCreateInstance, loader, "xrCreateInstance")
		purego.RegisterLibFunc(&xrDestroyInstance, loader, "xrDestroyInstance")
		purego.RegisterLibFunc(&xrGetInstanceProcAddr, loader, "xrGetInstanceProcAddr")
		purego.RegisterLibFunc(&xrGetSystem, loader, "xrGetSystem")
		purego.RegisterLibFunc(&xrCreateSession, loader, "xrCreateSession")
		purego.RegisterLibFunc(&xrDestroySession, loader, "xrDestroySession")
		purego.RegisterLibFunc(&xrCreateReferenceSpace, loader, "xrCreateReferenceSpace")
		purego.RegisterLibFunc(&xrDestroySpace, loader, "xrDestroySpace")
		purego.RegisterLibFunc(&xrEnumerateViewConfigurationViews, loader, "xrEnumerateViewConfigurationViews")
		purego.RegisterLibFunc(&xrCreateSwapchain, loader, "xrCreateSwapchain")
		purego.RegisterLibFunc(&xrDestroySwapchain, loader, "xrDestroySwapchain")
		purego.RegisterLibFunc(&xrEnumerateSwapchainImages, loader, "xrEnumerateSwapchainImages")
		purego.RegisterLibFunc(&xrPollEvent, loader, "xrPollEvent")
		purego.RegisterLibFunc(&xrBeginSession, loader, "xrBeginSession")
		purego.RegisterLibFunc(&xrEndSession, loader, "xrEndSession")
		purego.RegisterLibFunc(&xrWaitFrame, loader, "xrWaitFrame")
		purego.RegisterLibFunc(&xrBeginFrame, loader, "xrBeginFrame")
		purego.RegisterLibFunc(&xrLocateViews, loader, "xrLocateViews")
		purego.RegisterLibFunc(&xrEndFrame, loader, "xrEndFrame")
		purego.RegisterLibFunc(&xrAcquireSwapchainImage, loader, "xrAcquireSwapchainImage")
		purego.RegisterLibFunc(&xrWaitSwapchainImage, loader, "xrWaitSwapchainImage")
		purego.RegisterLibFunc(&xrReleaseSwapchainImage, loader, "xrReleaseSwapchainImage")

		purego.RegisterLibFunc(&glXGetCurrentDisplay, libGL, "glXGetCurrentDisplay")
		purego.RegisterLibFunc(&glXGetCurrentContext, libGL, "glXGetCurrentContext")
		purego.RegisterLibFunc(&glXGetCurrentDrawable, libGL, "glXGetCurrentDrawable")
	})

	return loadErr
}

// Runtime talks to the system OpenXR runtime through the loader library.
// The OpenGL context the session binds to must be current on the calling
// thread when the session is created.
type Runtime struct {
	getGraphicsRequirements func(instance, system uint64, req *graphicsRequirementsOpenGL) int32

	event eventDataBuffer
}

var _ xr.Runtime = (*Runtime)(nil)

// Load opens the OpenXR loader and libGL.
func Load() (*Runtime, error) {
	if err := load(); err != nil {
		return nil, err
	}

	return &Runtime{}, nil
}

func check(r int32, call string) error {
	return xr.Check(xr.Result(r), call)
}

func (rt *Runtime) EnumerateExtensions() ([]string, error) {
	var count uint32
	if err := check(xrEnumerateInstanceExtensionProperties(nil, 0, &count, nil), "xrEnumerateInstanceExtensionProperties"); err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, nil
	}

	props := make([]extensionProperties, count)
	for idx := range props {
		props[idx].Type = typeExtensionProperties
	}

	if err := check(xrEnumerateInstanceExtensionProperties(nil, count, &count, &props[0]), "xrEnumerateInstanceExtensionProperties"); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, prop := range props[:count] {
		names = append(names, goString(prop.ExtensionName[:]))
	}

	return names, nil
}

func (rt *Runtime) CreateInstance(info xr.InstanceInfo) (xr.Instance, error) {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	createInfo := instanceCreateInfo{
		header: header{Type: typeInstanceCreateInfo},
	}

	copy(createInfo.ApplicationInfo.ApplicationName[:maxNameSize-1], info.ApplicationName)
	copy(createInfo.ApplicationInfo.EngineName[:maxNameSize-1], "stereorizer")
	createInfo.ApplicationInfo.APIVersion = apiVersion10

	if len(info.Extensions) > 0 {
		names := make([]*byte, len(info.Extensions))
		for idx, name := range info.Extensions {
			names[idx] = cString(name)
			pinner.Pin(names[idx])
		}

		pinner.Pin(&names[0])

		createInfo.EnabledExtensionCount = uint32(len(names))
		createInfo.EnabledExtensionNames = &names[0]
	}

	var instance uint64
	if err := check(xrCreateInstance(&createInfo, &instance), "xrCreateInstance"); err != nil {
		return 0, err
	}

	return xr.Instance(instance), nil
}

func (rt *Runtime) GetSystem(instance xr.Instance) (xr.SystemID, error) {
	info := systemGetInfo{
		header:     header{Type: typeSystemGetInfo},
		FormFactor: formFactorHeadMountedDisplay,
	}

	var system uint64
	if err := check(xrGetSystem(uint64(instance), &info, &system), "xrGetSystem"); err != nil {
		return 0, err
	}

	return xr.SystemID(system), nil
}

func (rt *Runtime) GraphicsRequirements(instance xr.Instance, system xr.SystemID) error {
	if rt.getGraphicsRequirements == nil {
		var fn uintptr

		name := cString("xrGetOpenGLGraphicsRequirementsKHR")
		if err := check(xrGetInstanceProcAddr(uint64(instance), name, &fn), "xrGetInstanceProcAddr"); err != nil {
			return err
		}

		purego.RegisterFunc(&rt.getGraphicsRequirements, fn)
	}

	req := graphicsRequirementsOpenGL{header: header{Type: typeGraphicsRequirementsOpenGL}}

	return check(rt.getGraphicsRequirements(uint64(instance), uint64(system), &req), "xrGetOpenGLGraphicsRequirementsKHR")
}

func (rt *Runtime) CreateSession(instance xr.Instance, system xr.SystemID, api xr.GraphicsAPI) (xr.Session, error) {
	if api != xr.GraphicsOpenGL {
		return 0, fmt.Errorf("xrCreateSession: unsupported graphics api %d", api)
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	// visual and fbconfig are optional, the runtime derives them from the context
	binding := &graphicsBindingOpenGLXlib{
		header:      header{Type: typeGraphicsBindingOpenGLXlib},
		XDisplay:    glXGetCurrentDisplay(),
		GLXDrawable: glXGetCurrentDrawable(),
		GLXContext:  glXGetCurrentContext(),
	}

	if binding.GLXContext == 0 {
		return 0, fmt.Errorf("xrCreateSession: no current glx context")
	}

	pinner.Pin(binding)

	info := sessionCreateInfo{
		header:   header{Type: typeSessionCreateInfo, Next: unsafe.Pointer(binding)},
		SystemID: uint64(system),
	}

	var session uint64
	if err := check(xrCreateSession(uint64(instance), &info, &session), "xrCreateSession"); err != nil {
		return 0, err
	}

	return xr.Session(session), nil
}

func (rt *Runtime) CreateReferenceSpace(session xr.Session, kind xr.ReferenceSpace) (xr.Space, error) {
	info := referenceSpaceCreateInfo{
		header:               header{Type: typeReferenceSpaceCreateInfo},
		ReferenceSpaceType:   int32(kind),
		PoseInReferenceSpace: pose{Orientation: quaternion{W: 1}},
	}

	var space uint64
	if err := check(xrCreateReferenceSpace(uint64(session), &info, &space), "xrCreateReferenceSpace"); err != nil {
		return 0, err
	}

	return xr.Space(space), nil
}

func (rt *Runtime) ViewConfigurations(instance xr.Instance, system xr.SystemID) ([]xr.ViewConfig, error) {
	var count uint32

	err := check(xrEnumerateViewConfigurationViews(uint64(instance), uint64(system), viewConfigurationPrimaryStereo, 0, &count, nil), "xrEnumerateViewConfigurationViews")
	if err != nil || count == 0 {
		return nil, err
	}

	views := make([]viewConfigurationView, count)
	for idx := range views {
		views[idx].Type = typeViewConfigurationView
	}

	err = check(xrEnumerateViewConfigurationViews(uint64(instance), uint64(system), viewConfigurationPrimaryStereo, count, &count, &views[0]), "xrEnumerateViewConfigurationViews")
	if err != nil {
		return nil, err
	}

	configs := make([]xr.ViewConfig, 0, count)
	for _, v := range views[:count] {
		configs = append(configs, xr.ViewConfig{
			RecommendedWidth:       v.RecommendedImageRectWidth,
			RecommendedHeight:      v.RecommendedImageRectHeight,
			RecommendedSampleCount: v.RecommendedSwapchainSampleCount,
		})
	}

	return configs, nil
}

func (rt *Runtime) CreateSwapchain(session xr.Session, info xr.SwapchainInfo) (xr.Swapchain, error) {
	if info.Format != pulse.FormatSRGB8Alpha8 {
		return 0, fmt.Errorf("xrCreateSwapchain: unsupported format %d", info.Format)
	}

	createInfo := swapchainCreateInfo{
		header:      header{Type: typeSwapchainCreateInfo},
		UsageFlags:  swapchainUsageColorAttachment | swapchainUsageTransferDst,
		Format:      glSRGB8Alpha8,
		SampleCount: 1,
		Width:       info.Width,
		Height:      info.Height,
		FaceCount:   1,
		ArraySize:   1,
		MipCount:    1,
	}

	var swapchain uint64
	if err := check(xrCreateSwapchain(uint64(session), &createInfo, &swapchain), "xrCreateSwapchain"); err != nil {
		return 0, err
	}

	return xr.Swapchain(swapchain), nil
}

func (rt *Runtime) EnumerateSwapchainImages(swapchain xr.Swapchain) ([]pulse.TextureHandle, error) {
	var count uint32

	err := check(xrEnumerateSwapchainImages(uint64(swapchain), 0, &count, nil), "xrEnumerateSwapchainImages")
	if err != nil || count == 0 {
		return nil, err
	}

	images := make([]swapchainImageOpenGL, count)
	for idx := range images {
		images[idx].Type = typeSwapchainImageOpenGL
	}

	err = check(xrEnumerateSwapchainImages(uint64(swapchain), count, &count, &images[0]), "xrEnumerateSwapchainImages")
	if err != nil {
		return nil, err
	}

	textures := make([]pulse.TextureHandle, 0, count)
	for _, image := range images[:count] {
		textures = append(textures, pulse.TextureHandle(image.Image))
	}

	return textures, nil
}

func (rt *Runtime) PollEvent(instance xr.Instance) (xr.Event, bool, error) {
	rt.event = eventDataBuffer{header: header{Type: typeEventDataBuffer}}

	result := xr.Result(xrPollEvent(uint64(instance), &rt.event))
	if result == xr.EventUnavailable {
		return xr.Event{}, false, nil
	}

	if err := xr.Check(result, "xrPollEvent"); err != nil {
		return xr.Event{}, false, err
	}

	switch rt.event.Type {
	case typeEventDataSessionStateChanged:
		changed := (*eventDataSessionStateChanged)(unsafe.Pointer(&rt.event))
		return xr.Event{Type: xr.EventSessionStateChanged, State: sessionState(changed.State)}, true, nil

	case typeEventDataInstanceLossPending:
		return xr.Event{Type: xr.EventInstanceLossPending}, true, nil

	default:
		return xr.Event{Type: xr.EventOther}, true, nil
	}
}

func sessionState(state int32) xr.SessionState {
	switch state {
	case stateIdle:
		return xr.SessionIdle
	case stateReady:
		return xr.SessionReady
	case stateSynchronized, stateVisible, stateFocused:
		return xr.SessionRunning
	case stateStopping:
		return xr.SessionStopping
	case stateLossPending:
		return xr.SessionLossPending
	case stateExiting:
		return xr.SessionExiting
	default:
		return xr.SessionUnknown
	}
}

func (rt *Runtime) BeginSession(session xr.Session) error {
	info := sessionBeginInfo{
		header:                       header{Type: typeSessionBeginInfo},
		PrimaryViewConfigurationType: viewConfigurationPrimaryStereo,
	}

	return check(xrBeginSession(uint64(session), &info), "xrBeginSession")
}

func (rt *Runtime) EndSession(session xr.Session) error {
	return check(xrEndSession(uint64(session)), "xrEndSession")
}

func (rt *Runtime) WaitFrame(session xr.Session) (xr.FrameState, error) {
	info := header{Type: typeFrameWaitInfo}
	state := frameState{header: header{Type: typeFrameState}}

	if err := check(xrWaitFrame(uint64(session), &info, &state), "xrWaitFrame"); err != nil {
		return xr.FrameState{}, err
	}

	return xr.FrameState{
		PredictedDisplayTime:   xr.Time(state.PredictedDisplayTime),
		PredictedDisplayPeriod: time.Duration(state.PredictedDisplayPeriod),
		ShouldRender:           state.ShouldRender != 0,
	}, nil
}

func (rt *Runtime) BeginFrame(session xr.Session) error {
	info := header{Type: typeFrameBeginInfo}

	// frame discarded is a success code and passes the check
	return check(xrBeginFrame(uint64(session), &info), "xrBeginFrame")
}

func (rt *Runtime) LocateViews(session xr.Session, space xr.Space, displayTime xr.Time) ([]xr.View, error) {
	info := viewLocateInfo{
		header:                header{Type: typeViewLocateInfo},
		ViewConfigurationType: viewConfigurationPrimaryStereo,
		DisplayTime:           int64(displayTime),
		Space:                 uint64(space),
	}

	state := viewState{header: header{Type: typeViewState}}

	var views [2]view
	for idx := range views {
		views[idx].Type = typeView
	}

	var count uint32
	if err := check(xrLocateViews(uint64(session), &info, &state, uint32(len(views)), &count, &views[0]), "xrLocateViews"); err != nil {
		return nil, err
	}

	result := make([]xr.View, 0, count)
	for _, v := range views[:count] {
		result = append(result, xr.View{
			Pose: xr.Pose{
				Orientation: glm.Quaternionf{
					V: glm.Vec3f{v.Pose.Orientation.X, v.Pose.Orientation.Y, v.Pose.Orientation.Z},
					S: v.Pose.Orientation.W,
				},
				Position: glm.Vec3f{v.Pose.Position.X, v.Pose.Position.Y, v.Pose.Position.Z},
			},
			Fov: glm.Fov{
				AngleLeft:  glm.Rad(v.Fov.AngleLeft),
				AngleRight: glm.Rad(v.Fov.AngleRight),
				AngleUp:    glm.Rad(v.Fov.AngleUp),
				AngleDown:  glm.Rad(v.Fov.AngleDown),
			},
		})
	}

	return result, nil
}

func (rt *Runtime) EndFrame(session xr.Session, end xr.FrameEnd) error {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	info := frameEndInfo{
		header:               header{Type: typeFrameEndInfo},
		DisplayTime:          int64(end.DisplayTime),
		EnvironmentBlendMode: environmentBlendModeOpaque,
	}

	if len(end.Layers) > 0 {
		layers := make([]unsafe.Pointer, 0, len(end.Layers))

		for _, layer := range end.Layers {
			if len(layer.Views) == 0 {
				continue
			}

			views := make([]compositionLayerProjectionView, len(layer.Views))
			for idx, v := range layer.Views {
				views[idx] = projectionView(v)
			}

			projection := &compositionLayerProjection{
				header:    header{Type: typeCompositionLayerProjection},
				Space:     uint64(layer.Space),
				ViewCount: uint32(len(views)),
				Views:     &views[0],
			}

			pinner.Pin(&views[0])
			pinner.Pin(projection)

			layers = append(layers, unsafe.Pointer(projection))
		}

		if len(layers) > 0 {
			pinner.Pin(&layers[0])

			info.LayerCount = uint32(len(layers))
			info.Layers = &layers[0]
		}
	}

	return check(xrEndFrame(uint64(session), &info), "xrEndFrame")
}

func projectionView(v xr.ProjectionView) compositionLayerProjectionView {
	x, y, w, h := v.ImageRect.XYWH()

	return compositionLayerProjectionView{
		header: header{Type: typeCompositionLayerProjectionView},
		Pose: pose{
			Orientation: quaternion{
				X: v.Pose.Orientation.V[0],
				Y: v.Pose.Orientation.V[1],
				Z: v.Pose.Orientation.V[2],
				W: v.Pose.Orientation.S,
			},
			Position: vector3{X: v.Pose.Position[0], Y: v.Pose.Position[1], Z: v.Pose.Position[2]},
		},
		Fov: fov{
			AngleLeft:  float32(v.Fov.AngleLeft),
			AngleRight: float32(v.Fov.AngleRight),
			AngleUp:    float32(v.Fov.AngleUp),
			AngleDown:  float32(v.Fov.AngleDown),
		},
		SubImage: swapchainSubImage{
			Swapchain: uint64(v.Swapchain),
			ImageRect: rect2Di{
				OffsetX: int32(x),
				OffsetY: int32(y),
				Width:   int32(w),
				Height:  int32(h),
			},
		},
	}
}

func (rt *Runtime) AcquireSwapchainImage(swapchain xr.Swapchain) (uint32, error) {
	info := header{Type: typeSwapchainImageAcquireInfo}

	var index uint32
	if err := check(xrAcquireSwapchainImage(uint64(swapchain), &info, &index), "xrAcquireSwapchainImage"); err != nil {
		return 0, err
	}

	return index, nil
}

func (rt *Runtime) WaitSwapchainImage(swapchain xr.Swapchain, timeout time.Duration) error {
	info := swapchainImageWaitInfo{
		header:  header{Type: typeSwapchainImageWaitInfo},
		Timeout: int64(timeout),
	}

	if timeout < 0 {
		info.Timeout = infiniteDuration
	}

	result := xr.Result(xrWaitSwapchainImage(uint64(swapchain), &info))
	if result == xr.TimeoutExpired {
		return fmt.Errorf("xrWaitSwapchainImage: %w", result)
	}

	return xr.Check(result, "xrWaitSwapchainImage")
}

func (rt *Runtime) ReleaseSwapchainImage(swapchain xr.Swapchain) error {
	info := header{Type: typeSwapchainImageReleaseInfo}
	return check(xrReleaseSwapchainImage(uint64(swapchain), &info), "xrReleaseSwapchainImage")
}

func (rt *Runtime) DestroySwapchain(swapchain xr.Swapchain) error {
	return check(xrDestroySwapchain(uint64(swapchain)), "xrDestroySwapchain")
}

func (rt *Runtime) DestroySpace(space xr.Space) error {
	return check(xrDestroySpace(uint64(space)), "xrDestroySpace")
}

func (rt *Runtime) DestroySession(session xr.Session) error {
	return check(xrDestroySession(uint64(session)), "xrDestroySession")
}

func (rt *Runtime) DestroyInstance(instance xr.Instance) error {
	return check(xrDestroyInstance(uint64(instance)), "xrDestroyInstance")
}
