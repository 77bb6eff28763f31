package xr_test

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/pulse/software"
	"github.com/oliverbestmann/stereorizer/xr"
	"github.com/oliverbestmann/stereorizer/xr/xrtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunningDriver(t *testing.T) (*xr.Driver, *xrtest.Runtime, *software.Device) {
	t.Helper()

	dev := software.NewDevice(128, 32)
	rt := xrtest.New(dev)

	driver := xr.NewDriver(rt, dev, xr.Options{Near: 0.1, Far: 100})
	require.NoError(t, driver.Init(xr.GraphicsOpenGL))

	rt.Push(xr.SessionReady)
	require.NoError(t, driver.PollEvents())
	require.True(t, driver.Running())

	return driver, rt, dev
}

func TestDriver_Init(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	assert.Equal(t, xr.PhaseInitialized, driver.Phase())
	assert.Equal(t, xr.SessionRunning, driver.SessionState())
	assert.Equal(t, 2, rt.Count("CreateSwapchain"))
	assert.Equal(t, 1, rt.Count("BeginSession"))

	width, height := driver.RecommendedSize()
	assert.Equal(t, uint32(64), width)
	assert.Equal(t, uint32(32), height)
}

func TestDriver_InitFallsBackToLocalSpace(t *testing.T) {
	dev := software.NewDevice(128, 32)
	rt := xrtest.New(dev)
	rt.FailReferenceSpace[xr.ReferenceSpaceStage] = true

	driver := xr.NewDriver(rt, dev, xr.Options{})
	require.NoError(t, driver.Init(xr.GraphicsOpenGL))

	assert.Equal(t, 2, rt.Count("CreateReferenceSpace"))
	require.Len(t, rt.Spaces, 1)

	rt.Push(xr.SessionReady)
	require.NoError(t, driver.PollEvents())
	_, err := driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.NoError(t, driver.LocateViews())
	require.NoError(t, driver.Submit(0, 128, 32))

	require.Len(t, rt.Ended, 1)
	assert.Equal(t, rt.Spaces[0], rt.Ended[0].Layers[0].Space)
}

func TestDriver_InitFailures(t *testing.T) {
	cases := map[string]string{
		"instance": "CreateInstance",
		"system":   "GetSystem",
		"session":  "CreateSession",
	}

	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			dev := software.NewDevice(128, 32)
			rt := xrtest.New(dev)
			rt.Fail[call] = true

			driver := xr.NewDriver(rt, dev, xr.Options{})
			require.ErrorIs(t, driver.Init(xr.GraphicsOpenGL), xrtest.ErrInjected)

			assert.Equal(t, xr.PhaseUninitialized, driver.Phase())
			assert.Zero(t, rt.Count("CreateSwapchain"))

			if name != "instance" {
				assert.Equal(t, 1, rt.Count("DestroyInstance"))
			}
		})
	}
}

func TestDriver_MissingOptionalExtension(t *testing.T) {
	dev := software.NewDevice(128, 32)
	rt := xrtest.New(dev)

	driver := xr.NewDriver(rt, dev, xr.Options{OptionalExtensions: []string{"XR_EXT_debug_utils"}})
	require.NoError(t, driver.Init(xr.GraphicsOpenGL))

	extensions := rt.Instance.Extensions
	assert.True(t, slices.Contains(extensions, "XR_KHR_opengl_enable"))
	assert.False(t, slices.Contains(extensions, "XR_EXT_debug_utils"))
}

func TestDriver_RejectsLocateViewsBeforeBeginFrame(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	_, err := driver.WaitFrame()
	require.NoError(t, err)

	err = driver.LocateViews()
	require.ErrorIs(t, err, xr.ErrCallOrder)

	assert.Zero(t, rt.Count("LocateViews"))
	assert.Equal(t, xr.PhaseFrameWaited, driver.Phase())
}

func TestDriver_RejectsBeginFrameWithoutWait(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	require.ErrorIs(t, driver.BeginFrame(), xr.ErrCallOrder)
	assert.Zero(t, rt.Count("BeginFrame"))
}

func TestDriver_RejectsFramesBeforeInit(t *testing.T) {
	dev := software.NewDevice(128, 32)
	rt := xrtest.New(dev)

	driver := xr.NewDriver(rt, dev, xr.Options{})

	_, err := driver.WaitFrame()
	require.ErrorIs(t, err, xr.ErrNotInitialized)
	require.ErrorIs(t, driver.PollEvents(), xr.ErrNotInitialized)
	assert.Empty(t, rt.Calls)
}

func TestDriver_StoppingEndsSessionOnce(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	rt.Push(xr.SessionStopping, xr.SessionStopping)

	require.NoError(t, driver.PollEvents())

	assert.Equal(t, 1, rt.Count("EndSession"))
	assert.Equal(t, xr.PhaseStopped, driver.Phase())
	assert.False(t, driver.Running())

	_, err := driver.WaitFrame()
	require.ErrorIs(t, err, xr.ErrStopped)
	assert.Zero(t, rt.Count("WaitFrame"))

	// shutdown must not end the session a second time
	driver.Shutdown()
	assert.Equal(t, 1, rt.Count("EndSession"))
}

func TestDriver_FrameLoop(t *testing.T) {
	driver, rt, dev := newRunningDriver(t)

	for frame := range 3 {
		require.NoError(t, driver.PollEvents())

		state, err := driver.WaitFrame()
		require.NoError(t, err)
		require.True(t, state.ShouldRender)

		require.NoError(t, driver.BeginFrame())
		require.NoError(t, driver.LocateViews())
		require.NoError(t, driver.Submit(0, 128, 32))

		require.Len(t, rt.Ended, frame+1)
	}

	end := rt.Ended[0]
	assert.Equal(t, xr.Time(1000), end.DisplayTime)
	require.Len(t, end.Layers, 1)
	require.Len(t, end.Layers[0].Views, 2)

	assert.Equal(t, pulse.RectangleFromXYWH[uint32](0, 0, 64, 32), end.Layers[0].Views[0].ImageRect)
	assert.Equal(t, 6, dev.Stats().Blits)
	assert.Zero(t, dev.LiveFramebuffers())
}

func TestDriver_SubmitCopiesHalves(t *testing.T) {
	driver, rt, dev := newRunningDriver(t)

	// paint the right half of the backbuffer red
	dev.BindFramebuffer(0)
	dev.Clear(pulse.ColorLinearRGBA(0, 0, 1, 1), false)

	redFb, err := dev.CreateFramebuffer()
	require.NoError(t, err)
	red, err := dev.CreateTexture(pulse.FormatRGBA8, 64, 32)
	require.NoError(t, err)
	dev.BindFramebuffer(redFb)
	dev.FramebufferTexture(pulse.AttachmentColor, red)
	dev.Clear(pulse.ColorLinearRGBA(1, 0, 0, 1), false)
	dev.BlitFramebuffer(redFb, 0, pulse.RectangleFromXYWH[uint32](0, 0, 64, 32), pulse.RectangleFromXYWH[uint32](64, 0, 64, 32))
	dev.BindFramebuffer(0)

	_, err = driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.NoError(t, driver.LocateViews())
	require.NoError(t, driver.Submit(0, 128, 32))

	// fake runtime always hands out image one
	pixelOf := func(eye int) [4]uint8 {
		fb, err := dev.CreateFramebuffer()
		require.NoError(t, err)
		defer dev.DeleteFramebuffer(fb)

		dev.BindFramebuffer(fb)
		dev.FramebufferTexture(pulse.AttachmentColor, rt.Images[rt.Swapchains[eye]][1])

		var pixel [4]uint8
		dev.ReadPixels(pulse.RectangleFromXYWH[uint32](10, 10, 1, 1), pixel[:])
		dev.BindFramebuffer(0)
		return pixel
	}

	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixelOf(0))
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixelOf(1))
	assert.Len(t, rt.Ended, 1)
}

func TestDriver_PartialEyeFailure(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	rt.FailAcquire[rt.Swapchains[1]] = true

	_, err := driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.NoError(t, driver.LocateViews())
	require.NoError(t, driver.Submit(0, 128, 32))

	require.Len(t, rt.Ended, 1)
	require.Len(t, rt.Ended[0].Layers, 1)
	require.Len(t, rt.Ended[0].Layers[0].Views, 1)
	assert.Equal(t, rt.Swapchains[0], rt.Ended[0].Layers[0].Views[0].Swapchain)

	// the frame protocol continues
	_, err = driver.WaitFrame()
	require.NoError(t, err)
}

func TestDriver_WaitFailureReleasesImage(t *testing.T) {
	driver, rt, dev := newRunningDriver(t)

	rt.FailWait[rt.Swapchains[1]] = true

	for range 2 {
		_, err := driver.WaitFrame()
		require.NoError(t, err)
		require.NoError(t, driver.BeginFrame())
		require.NoError(t, driver.LocateViews())
		require.NoError(t, driver.Submit(0, 128, 32))
	}

	// every acquired image went back to the runtime
	assert.Equal(t, 4, rt.Count("AcquireSwapchainImage"))
	assert.Equal(t, 4, rt.Count("ReleaseSwapchainImage"))

	for _, end := range rt.Ended {
		require.Len(t, end.Layers, 1)
		require.Len(t, end.Layers[0].Views, 1)
		assert.Equal(t, rt.Swapchains[0], end.Layers[0].Views[0].Swapchain)
	}

	// only the healthy eye was copied and flushed before its release
	assert.Equal(t, 2, dev.Stats().Blits)
	assert.Equal(t, 2, dev.Stats().Flushes)
}

func TestDriver_ShouldRenderFalseSubmitsNoLayers(t *testing.T) {
	driver, rt, dev := newRunningDriver(t)
	rt.FrameState.ShouldRender = false

	_, err := driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.NoError(t, driver.LocateViews())
	require.NoError(t, driver.Submit(0, 128, 32))

	require.Len(t, rt.Ended, 1)
	assert.Empty(t, rt.Ended[0].Layers)
	assert.Zero(t, dev.Stats().Blits)
}

func TestDriver_LocateViewsFailureKeepsMatrices(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	_, err := driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.NoError(t, driver.LocateViews())
	require.NoError(t, driver.Submit(0, 128, 32))

	previous := driver.ViewMatrix(0)

	rt.Fail["LocateViews"] = true

	_, err = driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.ErrorIs(t, driver.LocateViews(), xrtest.ErrInjected)

	assert.Equal(t, previous, driver.ViewMatrix(0))

	// an unlocated frame is still ended, without layers
	require.NoError(t, driver.Submit(0, 128, 32))
	require.Len(t, rt.Ended, 2)
	assert.Empty(t, rt.Ended[1].Layers)
}

func TestDriver_SymmetricProjection(t *testing.T) {
	driver, _, _ := newRunningDriver(t)

	_, err := driver.WaitFrame()
	require.NoError(t, err)
	require.NoError(t, driver.BeginFrame())
	require.NoError(t, driver.LocateViews())

	for eye := range 2 {
		proj := driver.ProjectionMatrix(eye)
		assert.InDelta(t, 0, proj.At(2, 0), 1e-6)
		assert.InDelta(t, 0, proj.At(2, 1), 1e-6)

		// the eye position maps to the origin of view space
		view := driver.ViewMatrix(eye)
		origin := view.TransformPoint(rtViewPosition(eye))
		assert.InDelta(t, 0, origin.Length(), 1e-5)
	}
}

func rtViewPosition(eye int) glm.Vec3f {
	x := float32(-0.032)
	if eye == 1 {
		x = 0.032
	}

	return glm.Vec3f{x, 1.6, 0}
}

func TestDriver_ShutdownReverseOrder(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	rt.Calls = nil
	driver.Shutdown()

	assert.Equal(t, []string{
		"EndSession",
		"DestroySwapchain",
		"DestroySwapchain",
		"DestroySpace",
		"DestroySession",
		"DestroyInstance",
	}, rt.Calls)

	assert.Equal(t, xr.PhaseUninitialized, driver.Phase())
}

func TestDriver_ShutdownLogsDestroyFailures(t *testing.T) {
	driver, rt, _ := newRunningDriver(t)

	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	rt.Fail["DestroySwapchain"] = true
	rt.Fail["DestroyInstance"] = true

	driver.Shutdown()

	assert.Equal(t, 2, strings.Count(logs.String(), "Failed to destroy swapchain"))
	assert.Contains(t, logs.String(), "Failed to destroy instance")
	assert.NotContains(t, logs.String(), "Failed to destroy session")

	// all objects are destroyed even if some calls fail
	assert.Equal(t, 1, rt.Count("DestroySession"))
	assert.Equal(t, xr.PhaseUninitialized, driver.Phase())
}

func TestResult_Check(t *testing.T) {
	require.NoError(t, xr.Check(xr.Success, "xrWaitFrame"))

	err := xr.Check(xr.ErrorSessionNotRunning, "xrWaitFrame")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xrWaitFrame")

	var result xr.Result
	require.ErrorAs(t, err, &result)
	assert.Equal(t, xr.ErrorSessionNotRunning, result)
}
