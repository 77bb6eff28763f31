// Package orion drives the stereo renderer: it owns both eyes, synchronizes
// them with an optional head mounted display and composites the result
// side by side into the default framebuffer.
package orion

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oliverbestmann/stereorizer/glimpse"
	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/stereo"
	"github.com/oliverbestmann/stereorizer/xr"
)

const (
	DefaultIPD = 0.064

	MinTargetFPS = 5
	MaxTargetFPS = 240

	// distance of the point both desktop eyes converge on
	lookAtDistance = 10

	fenceTimeout = time.Second
)

type Options struct {
	// IPD is the distance between the eyes in world units.
	IPD float32

	Near, Far float32

	// vertical field of view of the desktop cameras in degrees
	Fov float32

	LeftMode  stereo.DisplayMode
	RightMode stereo.DisplayMode

	TargetFPS int

	// XR drives the eyes from a head mounted display when set. The driver
	// must be initialized.
	XR *xr.Driver
}

func (o Options) withDefaults() Options {
	if o.IPD <= 0 {
		o.IPD = DefaultIPD
	}

	if o.Near <= 0 {
		o.Near = 0.1
	}

	if o.Far <= o.Near {
		o.Far = 100
	}

	if o.Fov <= 0 {
		o.Fov = 45
	}

	return o
}

// Compositor renders both eyes of a stereo frame. All methods must be
// called from the thread owning the graphics context.
type Compositor struct {
	dev pulse.Device

	eyes         [2]*stereo.EyeRenderer
	reprojection *stereo.ReprojectionPass

	// head is the free fly camera, the eye cameras are derived from it
	head    *stereo.Camera
	cameras [2]*stereo.Camera
	freeFly FreeFly

	light  stereo.Light
	models []*pulse.Model

	ipd   float32
	modes [2]stereo.DisplayMode

	targetFPS int
	fps       fpsCounter

	driver   *xr.Driver
	xrActive bool

	width, height uint32

	profile frameProfile
}

// NewCompositor creates both eyes with programs from the cache. The
// compositor takes no ownership of the cache.
func NewCompositor(dev pulse.Device, programs *pulse.ProgramCache, opts Options) (*Compositor, error) {
	opts = opts.withDefaults()

	visualize, err := programs.Get(stereo.VisualizeShader)
	if err != nil {
		return nil, fmt.Errorf("load visualization program: %w", err)
	}

	reprojection, err := programs.Get(stereo.ReprojectionShader)
	if err != nil {
		return nil, fmt.Errorf("load reprojection program: %w", err)
	}

	c := &Compositor{
		dev:          dev,
		reprojection: stereo.NewReprojectionPass(dev, reprojection),
		head:         stereo.NewCamera(glm.Vec3f{0, 0, 3}),
		freeFly:      DefaultFreeFly(),
		light:        stereo.DefaultLight(),
		ipd:          opts.IPD,
		driver:       opts.XR,
		xrActive:     opts.XR != nil,
	}

	for _, eye := range stereo.Eyes {
		renderer, err := stereo.NewEyeRenderer(dev, eye, visualize)
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("create %s eye: %w", eye, err)
		}

		c.eyes[eye] = renderer
		c.cameras[eye] = stereo.NewCamera(glm.Vec3f{})
	}

	for _, camera := range []*stereo.Camera{c.head, c.cameras[stereo.EyeLeft], c.cameras[stereo.EyeRight]} {
		camera.Near = opts.Near
		camera.Far = opts.Far
		camera.Fov = opts.Fov
	}

	if err := c.SetLeftDisplayMode(opts.LeftMode); err != nil {
		c.Release()
		return nil, err
	}

	if err := c.SetRightDisplayMode(opts.RightMode); err != nil {
		c.Release()
		return nil, err
	}

	if err := c.SetTargetFPS(opts.TargetFPS); err != nil {
		c.Release()
		return nil, err
	}

	c.updateEyeCameras()

	return c, nil
}

func (c *Compositor) IPD() float32 {
	return c.ipd
}

// SetIPD moves both eyes apart by ipd, centered around the head, and makes
// them converge on a point ahead of the head.
func (c *Compositor) SetIPD(ipd float32) {
	c.ipd = max(ipd, 0)
	c.updateEyeCameras()
}

func (c *Compositor) updateEyeCameras() {
	offset := c.head.Right().MulScalar(c.ipd / 2)
	target := c.head.Position.Add(c.head.Front().MulScalar(lookAtDistance))

	left := c.cameras[stereo.EyeLeft]
	right := c.cameras[stereo.EyeRight]

	left.Position = c.head.Position.Sub(offset)
	right.Position = c.head.Position.Add(offset)

	left.LookAt(target)
	right.LookAt(target)
}

// Head is the free fly camera the desktop eyes follow.
func (c *Compositor) Head() *stereo.Camera {
	return c.head
}

func (c *Compositor) Camera(eye stereo.EyeSlot) *stereo.Camera {
	return c.cameras[eye]
}

func (c *Compositor) Eye(eye stereo.EyeSlot) *stereo.EyeRenderer {
	return c.eyes[eye]
}

func (c *Compositor) LeftDisplayMode() stereo.DisplayMode {
	return c.modes[stereo.EyeLeft]
}

func (c *Compositor) RightDisplayMode() stereo.DisplayMode {
	return c.modes[stereo.EyeRight]
}

func (c *Compositor) SetLeftDisplayMode(mode stereo.DisplayMode) error {
	return c.setDisplayMode(stereo.EyeLeft, mode)
}

func (c *Compositor) SetRightDisplayMode(mode stereo.DisplayMode) error {
	return c.setDisplayMode(stereo.EyeRight, mode)
}

func (c *Compositor) setDisplayMode(eye stereo.EyeSlot, mode stereo.DisplayMode) error {
	if !mode.AllowedFor(eye) {
		return fmt.Errorf("%w: %s eye cannot show %s", stereo.ErrInvalidDisplayMode, eye, mode)
	}

	if c.modes[eye] != mode {
		slog.Info("Display mode changed", slog.String("eye", eye.String()), slog.String("mode", mode.String()))
	}

	c.modes[eye] = mode

	return nil
}

func (c *Compositor) TargetFPS() int {
	return c.targetFPS
}

// SetTargetFPS limits the frame rate. Zero disables the limit.
func (c *Compositor) SetTargetFPS(fps int) error {
	if fps != 0 && (fps < MinTargetFPS || fps > MaxTargetFPS) {
		return fmt.Errorf("target fps %d not within [%d, %d]", fps, MinTargetFPS, MaxTargetFPS)
	}

	c.targetFPS = fps

	return nil
}

// CurrentFPS is the frame rate measured over the last full second.
func (c *Compositor) CurrentFPS() float64 {
	return c.fps.current
}

func (c *Compositor) XRActive() bool {
	return c.xrActive
}

func (c *Compositor) Light() *stereo.Light {
	return &c.light
}

// AddModel adds a model to the scene. Adding a model twice has no effect.
func (c *Compositor) AddModel(model *pulse.Model) {
	if model == nil || slices.Contains(c.models, model) {
		return
	}

	c.models = append(c.models, model)
}

// RemoveModel removes the model from the scene. It does not release the
// mesh or the program.
func (c *Compositor) RemoveModel(model *pulse.Model) {
	c.models = slices.DeleteFunc(c.models, func(m *pulse.Model) bool { return m == model })
}

func (c *Compositor) Models() []*pulse.Model {
	return c.models
}

// Resize configures both eye targets to half the width and the full height
// of the backbuffer. No device calls are made until the next frame renders.
func (c *Compositor) Resize(width, height uint32) {
	if width == c.width && height == c.height {
		return
	}

	slog.Debug("Resize eye targets",
		slog.Int("width", int(width/2)),
		slog.Int("height", int(height)),
	)

	c.width = width
	c.height = height

	for _, eye := range stereo.Eyes {
		c.eyes[eye].Target().Configure(width/2, height)
		c.cameras[eye].Aspect = float32(width/2) / float32(max(height, 1))
	}

	c.head.Aspect = c.cameras[stereo.EyeLeft].Aspect
}

// RenderFrame renders one stereo frame into the default framebuffer of
// the given size and submits it to the head mounted display, if any.
func (c *Compositor) RenderFrame(input glimpse.InputState, dt time.Duration, width, height uint32) error {
	c.profile.startFrame()
	c.fps.tick(dt)

	c.Resize(width, height)

	var frameBegun bool
	if c.xrActive {
		frameBegun = c.syncXR()
	}

	if !frameBegun {
		c.freeFly.Apply(c.head, input, dt)
		c.updateEyeCameras()
	}

	c.profile.mark(stageXRSync)

	c.dev.BindFramebuffer(0)
	c.dev.Viewport(pulse.RectangleFromXYWH(0, 0, width, height))
	c.dev.Clear(pulse.ColorBlack, true)

	c.renderLeft()

	// the right eye may sample the capture of the left eye
	if err := pulse.WaitFence(c.dev, fenceTimeout); err != nil {
		slog.Warn("Waiting for left eye failed", slog.String("err", err.Error()))
	}

	c.profile.mark(stageLeftEye)

	c.renderRight()
	c.profile.mark(stageRightEye)

	c.dev.Flush()

	if frameBegun {
		if err := c.driver.Submit(0, width, height); err != nil {
			c.disableXR(fmt.Errorf("submit frame: %w", err))
		}
	}

	c.profile.mark(stageSubmit)
	c.profile.endFrame()

	return nil
}

func (c *Compositor) viewport(eye stereo.EyeSlot) pulse.Rectangle2u {
	half := c.width / 2
	return pulse.RectangleFromXYWH(uint32(eye)*half, 0, half, c.height)
}

func (c *Compositor) renderLeft() {
	eye := c.eyes[stereo.EyeLeft]
	camera := c.cameras[stereo.EyeLeft]

	if !eye.RenderToTarget(c.models, camera, c.light) {
		return
	}

	c.visualize(stereo.EyeLeft)
}

func (c *Compositor) renderRight() {
	eye := c.eyes[stereo.EyeRight]
	camera := c.cameras[stereo.EyeRight]

	if c.modes[stereo.EyeRight] != stereo.DisplayReprojectionMask {
		if eye.RenderToTarget(c.models, camera, c.light) {
			c.visualize(stereo.EyeRight)
		}

		return
	}

	left := c.eyes[stereo.EyeLeft]

	err := c.reprojection.Render(eye.Target(), c.models, left.Target(), c.cameras[stereo.EyeLeft], camera)
	if err != nil {
		slog.Debug("Reprojection skipped", slog.String("err", err.Error()))
		return
	}

	eye.VisualizeColor(c.viewport(stereo.EyeRight))
}

func (c *Compositor) visualize(eye stereo.EyeSlot) {
	renderer := c.eyes[eye]
	camera := c.cameras[eye]

	switch c.modes[eye] {
	case stereo.DisplayDepth:
		renderer.VisualizeDepth(c.viewport(eye), camera.Near, camera.Far)
	default:
		renderer.VisualizeColor(c.viewport(eye))
	}
}

// syncXR runs the frame timing calls of the driver and moves both eye
// cameras to the located views. It reports whether a frame was begun.
func (c *Compositor) syncXR() bool {
	if err := c.driver.PollEvents(); err != nil {
		c.disableXR(err)
		return false
	}

	if c.driver.Phase() == xr.PhaseStopped {
		c.disableXR(xr.ErrStopped)
		return false
	}

	if !c.driver.Running() {
		// session not ready yet, keep rendering on the desktop
		return false
	}

	if _, err := c.driver.WaitFrame(); err != nil {
		c.disableXR(err)
		return false
	}

	if err := c.driver.BeginFrame(); err != nil {
		c.disableXR(err)
		return false
	}

	if err := c.driver.LocateViews(); err != nil {
		// the previous poses stay in place, the frame is still ended
		slog.Warn("Failed to locate views", slog.String("err", err.Error()))
		return true
	}

	for _, eye := range stereo.Eyes {
		index := eye.ViewIndex()
		c.cameras[eye].SetPose(c.driver.ViewMatrix(index), c.driver.ProjectionMatrix(index))
	}

	return true
}

// disableXR stops using the head mounted display for the rest of the session.
func (c *Compositor) disableXR(err error) {
	if errors.Is(err, xr.ErrStopped) {
		slog.Info("XR session stopped, continuing on the desktop")
	} else {
		slog.Error("XR failed, continuing on the desktop", slog.String("err", err.Error()))
	}

	c.xrActive = false
	c.driver.Shutdown()

	for _, camera := range c.cameras {
		camera.ClearPose()
	}

	c.updateEyeCameras()
}

// Release deletes the eye targets. Programs belong to the program cache.
func (c *Compositor) Release() {
	for _, eye := range c.eyes {
		if eye != nil {
			eye.Release()
		}
	}
}
