package openxr

import (
	"unsafe"
)

type structureType int32

const (
	typeExtensionProperties            structureType = 2
	typeInstanceCreateInfo             structureType = 3
	typeSystemGetInfo                  structureType = 4
	typeViewLocateInfo                 structureType = 6
	typeView                           structureType = 7
	typeSessionCreateInfo              structureType = 8
	typeSwapchainCreateInfo            structureType = 9
	typeSessionBeginInfo               structureType = 10
	typeViewState                      structureType = 11
	typeFrameEndInfo                   structureType = 12
	typeEventDataBuffer                structureType = 16
	typeEventDataInstanceLossPending   structureType = 17
	typeEventDataSessionStateChanged   structureType = 18
	typeFrameWaitInfo                  structureType = 33
	typeCompositionLayerProjection     structureType = 35
	typeReferenceSpaceCreateInfo       structureType = 37
	typeViewConfigurationView          structureType = 41
	typeFrameState                     structureType = 44
	typeFrameBeginInfo                 structureType = 46
	typeCompositionLayerProjectionView structureType = 48
	typeSwapchainImageAcquireInfo      structureType = 55
	typeSwapchainImageWaitInfo         structureType = 56
	typeSwapchainImageReleaseInfo      structureType = 57
	typeGraphicsBindingOpenGLXlib      structureType = 1000023000
	typeSwapchainImageOpenGL           structureType = 1000023004
	typeGraphicsRequirementsOpenGL     structureType = 1000023005
)

const (
	formFactorHeadMountedDisplay   int32  = 1
	viewConfigurationPrimaryStereo int32  = 2
	environmentBlendModeOpaque     int32  = 1
	swapchainUsageColorAttachment  uint64 = 0x01
	swapchainUsageTransferDst      uint64 = 0x10
	infiniteDuration               int64  = 0x7fffffffffffffff
	glSRGB8Alpha8                  int64  = 0x8C43
)

const (
	maxNameSize     = 128
	eventBufferSize = 4000

	// XR_MAKE_VERSION(1, 0, 0)
	apiVersion10 uint64 = 1 << 48
)

const (
	stateIdle         int32 = 1
	stateReady        int32 = 2
	stateSynchronized int32 = 3
	stateVisible      int32 = 4
	stateFocused      int32 = 5
	stateStopping     int32 = 6
	stateLossPending  int32 = 7
	stateExiting      int32 = 8
)

type header struct {
	Type structureType
	_    uint32
	Next unsafe.Pointer
}

type extensionProperties struct {
	header
	ExtensionName    [maxNameSize]byte
	ExtensionVersion uint32
}

type applicationInfo struct {
	ApplicationName    [maxNameSize]byte
	ApplicationVersion uint32
	EngineName         [maxNameSize]byte
	EngineVersion      uint32
	APIVersion         uint64
}

type instanceCreateInfo struct {
	header
	CreateFlags           uint64
	ApplicationInfo       applicationInfo
	EnabledAPILayerCount  uint32
	EnabledAPILayerNames  **byte
	EnabledExtensionCount uint32
	EnabledExtensionNames **byte
}

type systemGetInfo struct {
	header
	FormFactor int32
}

type graphicsRequirementsOpenGL struct {
	header
	MinAPIVersionSupported uint64
	MaxAPIVersionSupported uint64
}

type graphicsBindingOpenGLXlib struct {
	header
	XDisplay    uintptr
	VisualID    uint32
	GLXFBConfig uintptr
	GLXDrawable uintptr
	GLXContext  uintptr
}

type sessionCreateInfo struct {
	header
	CreateFlags uint64
	SystemID    uint64
}

type quaternion struct {
	X, Y, Z, W float32
}

type vector3 struct {
	X, Y, Z float32
}

type pose struct {
	Orientation quaternion
	Position    vector3
}

type fov struct {
	AngleLeft, AngleRight, AngleUp, AngleDown float32
}

type referenceSpaceCreateInfo struct {
	header
	ReferenceSpaceType   int32
	PoseInReferenceSpace pose
}

type viewConfigurationView struct {
	header
	RecommendedImageRectWidth       uint32
	MaxImageRectWidth               uint32
	RecommendedImageRectHeight      uint32
	MaxImageRectHeight              uint32
	RecommendedSwapchainSampleCount uint32
	MaxSwapchainSampleCount         uint32
}

type swapchainCreateInfo struct {
	header
	CreateFlags uint64
	UsageFlags  uint64
	Format      int64
	SampleCount uint32
	Width       uint32
	Height      uint32
	FaceCount   uint32
	ArraySize   uint32
	MipCount    uint32
}

type swapchainImageOpenGL struct {
	header
	Image uint32
}

type eventDataBuffer struct {
	header
	Varying [eventBufferSize]byte
}

type eventDataSessionStateChanged struct {
	header
	Session uint64
	State   int32
	Time    int64
}

type sessionBeginInfo struct {
	header
	PrimaryViewConfigurationType int32
}

type frameState struct {
	header
	PredictedDisplayTime   int64
	PredictedDisplayPeriod int64
	ShouldRender           uint32
}

type viewLocateInfo struct {
	header
	ViewConfigurationType int32
	DisplayTime           int64
	Space                 uint64
}

type viewState struct {
	header
	ViewStateFlags uint64
}

type view struct {
	header
	Pose pose
	Fov  fov
}

type rect2Di struct {
	OffsetX, OffsetY int32
	Width, Height    int32
}

type swapchainSubImage struct {
	Swapchain       uint64
	ImageRect       rect2Di
	ImageArrayIndex uint32
}

type compositionLayerProjectionView struct {
	header
	Pose     pose
	Fov      fov
	SubImage swapchainSubImage
}

type compositionLayerProjection struct {
	header
	LayerFlags uint64
	Space      uint64
	ViewCount  uint32
	Views      *compositionLayerProjectionView
}

type frameEndInfo struct {
	header
	DisplayTime          int64
	EnvironmentBlendMode int32
	LayerCount           uint32
	Layers               *unsafe.Pointer
}

type swapchainImageWaitInfo struct {
	header
	Timeout int64
}

// cString copies name into a NUL terminated buffer.
func cString(name string) *byte {
	buf := make([]byte, len(name)+1)
	copy(buf, name)
	return &buf[0]
}

func goString(buf []byte) string {
	for idx, ch := range buf {
		if ch == 0 {
			return string(buf[:idx])
		}
	}

	return string(buf)
}
