package xr

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

const eyeCount = 2

type eyeSwapchain struct {
	handle Swapchain
	width  uint32
	height uint32
	images []pulse.TextureHandle
}

type Options struct {
	ApplicationName string

	// OptionalExtensions are enabled when the runtime offers them.
	OptionalExtensions []string

	Near float32
	Far  float32
}

// Driver runs the frame protocol of an immersive runtime session: wait,
// begin, locate views and submit. Calls out of protocol order are rejected
// without reaching the runtime.
type Driver struct {
	rt   Runtime
	dev  pulse.Device
	opts Options

	phase        Phase
	sessionState SessionState
	running      bool

	instance Instance
	system   SystemID
	session  Session
	space    Space

	swapchains [eyeCount]*eyeSwapchain

	frameState FrameState
	views      []View

	viewMatrices       [eyeCount]glm.Mat4f
	projectionMatrices [eyeCount]glm.Mat4f
}

func NewDriver(rt Runtime, dev pulse.Device, opts Options) *Driver {
	if opts.Near <= 0 {
		opts.Near = 0.1
	}

	if opts.Far <= opts.Near {
		opts.Far = 100
	}

	if opts.ApplicationName == "" {
		opts.ApplicationName = "stereorizer"
	}

	return &Driver{rt: rt, dev: dev, opts: opts}
}

func (d *Driver) Phase() Phase {
	return d.phase
}

func (d *Driver) SessionState() SessionState {
	return d.sessionState
}

// Running reports whether the session has begun and frames may be submitted.
func (d *Driver) Running() bool {
	return d.running && d.phase != PhaseStopped
}

// Init creates the instance, session, reference space and one swapchain per
// eye. Only failing to create the instance, find a system or create the
// session is fatal, every other problem is logged and degrades the session.
func (d *Driver) Init(api GraphicsAPI) error {
	if d.phase != PhaseUninitialized {
		return fmt.Errorf("init: %w: driver is %s", ErrCallOrder, d.phase)
	}

	extensions := d.negotiateExtensions(api)

	instance, err := d.rt.CreateInstance(InstanceInfo{
		ApplicationName: d.opts.ApplicationName,
		Extensions:      extensions,
	})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	system, err := d.rt.GetSystem(instance)
	if err != nil {
		_ = d.rt.DestroyInstance(instance)
		return fmt.Errorf("get head mounted display system: %w", err)
	}

	if err := d.rt.GraphicsRequirements(instance, system); err != nil {
		slog.Warn("Failed to query graphics requirements", slog.String("err", err.Error()))
	}

	session, err := d.rt.CreateSession(instance, system, api)
	if err != nil {
		_ = d.rt.DestroyInstance(instance)
		return fmt.Errorf("create session: %w", err)
	}

	d.instance = instance
	d.system = system
	d.session = session

	d.space = d.createReferenceSpace()
	d.createSwapchains()

	d.phase = PhaseInitialized
	d.sessionState = SessionIdle
	d.running = false
	d.views = nil

	slog.Info("XR session created", slog.Int("swapchains", d.swapchainCount()))

	return nil
}

func (d *Driver) negotiateExtensions(api GraphicsAPI) []string {
	available, err := d.rt.EnumerateExtensions()
	if err != nil {
		slog.Warn("Failed to enumerate runtime extensions", slog.String("err", err.Error()))
	}

	var enabled []string

	if required := api.RequiredExtension(); required != "" {
		if !slices.Contains(available, required) {
			slog.Error("Runtime does not offer required extension", slog.String("extension", required))
		}

		// instance creation will report the problem
		enabled = append(enabled, required)
	}

	for _, name := range d.opts.OptionalExtensions {
		if !slices.Contains(available, name) {
			slog.Warn("Optional extension not available", slog.String("extension", name))
			continue
		}

		enabled = append(enabled, name)
	}

	return enabled
}

func (d *Driver) createReferenceSpace() Space {
	for _, kind := range []ReferenceSpace{ReferenceSpaceStage, ReferenceSpaceLocal} {
		space, err := d.rt.CreateReferenceSpace(d.session, kind)
		if err == nil {
			return space
		}

		slog.Warn("Failed to create reference space", slog.Int("kind", int(kind)), slog.String("err", err.Error()))
	}

	slog.Error("No reference space available, views cannot be located")

	return 0
}

func (d *Driver) createSwapchains() {
	configs, err := d.rt.ViewConfigurations(d.instance, d.system)
	if err != nil {
		slog.Error("Failed to query view configurations", slog.String("err", err.Error()))
		return
	}

	for eye := range min(len(configs), eyeCount) {
		config := configs[eye]

		info := SwapchainInfo{
			Format: pulse.FormatSRGB8Alpha8,
			Width:  config.RecommendedWidth,
			Height: config.RecommendedHeight,
		}

		handle, err := d.rt.CreateSwapchain(d.session, info)
		if err != nil {
			slog.Error("Failed to create swapchain", slog.Int("eye", eye), slog.String("err", err.Error()))
			continue
		}

		images, err := d.rt.EnumerateSwapchainImages(handle)
		if err != nil {
			slog.Error("Failed to enumerate swapchain images", slog.Int("eye", eye), slog.String("err", err.Error()))
			_ = d.rt.DestroySwapchain(handle)
			continue
		}

		d.swapchains[eye] = &eyeSwapchain{
			handle: handle,
			width:  info.Width,
			height: info.Height,
			images: images,
		}

		slog.Info(
			"Created swapchain",
			slog.Int("eye", eye),
			slog.Int("width", int(info.Width)),
			slog.Int("height", int(info.Height)),
			slog.Int("images", len(images)),
		)
	}
}

func (d *Driver) swapchainCount() int {
	var count int
	for _, sc := range d.swapchains {
		if sc != nil {
			count++
		}
	}

	return count
}

// RecommendedSize returns the render size of a single eye as recommended by
// the runtime, zero if unknown.
func (d *Driver) RecommendedSize() (width, height uint32) {
	for _, sc := range d.swapchains {
		if sc != nil {
			return sc.width, sc.height
		}
	}

	return 0, 0
}

// PollEvents drains the event queue of the runtime and follows session state
// changes. It must run once per frame before WaitFrame.
func (d *Driver) PollEvents() error {
	if d.phase == PhaseUninitialized {
		return ErrNotInitialized
	}

	for {
		event, ok, err := d.rt.PollEvent(d.instance)
		if err != nil {
			return fmt.Errorf("poll event: %w", err)
		}

		if !ok {
			return nil
		}

		switch event.Type {
		case EventSessionStateChanged:
			d.onSessionState(event.State)

		case EventInstanceLossPending:
			slog.Warn("XR instance loss pending")
			d.stop()
		}
	}
}

func (d *Driver) onSessionState(state SessionState) {
	slog.Info(
		"XR session state changed",
		slog.String("from", d.sessionState.String()),
		slog.String("to", state.String()),
	)

	d.sessionState = state

	switch state {
	case SessionReady:
		if d.phase == PhaseStopped || d.running {
			return
		}

		if err := d.rt.BeginSession(d.session); err != nil {
			slog.Error("Failed to begin session", slog.String("err", err.Error()))
			return
		}

		d.running = true
		d.sessionState = SessionRunning

	case SessionStopping:
		if d.running {
			d.running = false

			if err := d.rt.EndSession(d.session); err != nil {
				slog.Error("Failed to end session", slog.String("err", err.Error()))
			}
		}

		d.stop()

	case SessionExiting, SessionLossPending:
		d.stop()
	}
}

func (d *Driver) stop() {
	d.phase = PhaseStopped
	d.views = nil
}

func (d *Driver) checkFrameCall(call string, expected func(Phase) bool) error {
	switch {
	case d.phase == PhaseUninitialized:
		return fmt.Errorf("%s: %w", call, ErrNotInitialized)

	case d.phase == PhaseStopped:
		return fmt.Errorf("%s: %w", call, ErrStopped)

	case !d.running:
		return fmt.Errorf("%s: %w", call, ErrNotRunning)

	case !expected(d.phase):
		return fmt.Errorf("%s: %w: driver is %s", call, ErrCallOrder, d.phase)
	}

	return nil
}

func is(phase Phase) func(Phase) bool {
	return func(p Phase) bool { return p == phase }
}

// WaitFrame blocks until the runtime wants the next frame.
func (d *Driver) WaitFrame() (FrameState, error) {
	if err := d.checkFrameCall("wait frame", Phase.waiting); err != nil {
		return FrameState{}, err
	}

	state, err := d.rt.WaitFrame(d.session)
	if err != nil {
		return FrameState{}, fmt.Errorf("wait frame: %w", err)
	}

	d.frameState = state
	d.phase = PhaseFrameWaited

	return state, nil
}

// BeginFrame opens the submission window of the frame returned by WaitFrame.
func (d *Driver) BeginFrame() error {
	if err := d.checkFrameCall("begin frame", is(PhaseFrameWaited)); err != nil {
		return err
	}

	if err := d.rt.BeginFrame(d.session); err != nil {
		// the waited frame is lost, start over with the next wait
		d.phase = PhaseFrameSubmitted
		return fmt.Errorf("begin frame: %w", err)
	}

	d.phase = PhaseFrameBegun

	return nil
}

// LocateViews queries the pose and field of view of both eyes at the
// predicted display time and derives their view and projection matrices.
// On failure the matrices of the previous frame stay in place.
func (d *Driver) LocateViews() error {
	if err := d.checkFrameCall("locate views", is(PhaseFrameBegun)); err != nil {
		return err
	}

	views, err := d.rt.LocateViews(d.session, d.space, d.frameState.PredictedDisplayTime)
	if err != nil {
		return fmt.Errorf("locate views: %w", err)
	}

	if len(views) < eyeCount {
		return fmt.Errorf("locate views: runtime returned %d views", len(views))
	}

	d.views = views[:eyeCount]

	for eye, view := range d.views {
		d.viewMatrices[eye] = glm.PoseView(view.Pose.Orientation, view.Pose.Position)
		d.projectionMatrices[eye] = glm.OffAxisPerspective(view.Fov, d.opts.Near, d.opts.Far)
	}

	d.phase = PhaseViewsLocated

	return nil
}

// ViewMatrix returns the view matrix of the eye with the given view index.
func (d *Driver) ViewMatrix(eye int) glm.Mat4f {
	return d.viewMatrices[eye]
}

// ProjectionMatrix returns the off axis projection of the eye with the given view index.
func (d *Driver) ProjectionMatrix(eye int) glm.Mat4f {
	return d.projectionMatrices[eye]
}

func (d *Driver) FrameState() FrameState {
	return d.frameState
}

// Submit copies the left and right half of the source framebuffer into the
// swapchains of the eyes and ends the frame with one projection layer.
// An eye that fails any swapchain step is left out of the layer.
func (d *Driver) Submit(source pulse.FramebufferHandle, width, height uint32) error {
	located := func(p Phase) bool { return p == PhaseViewsLocated || p == PhaseFrameBegun }
	if err := d.checkFrameCall("submit", located); err != nil {
		return err
	}

	end := FrameEnd{DisplayTime: d.frameState.PredictedDisplayTime}

	if d.frameState.ShouldRender && d.phase == PhaseViewsLocated {
		var views []ProjectionView

		for eye := range eyeCount {
			half := pulse.RectangleFromXYWH(uint32(eye)*width/2, 0, width/2, height)

			view, err := d.copyEye(eye, source, half)
			if err != nil {
				slog.Warn("Omitting eye from frame", slog.Int("eye", eye), slog.String("err", err.Error()))
				continue
			}

			views = append(views, view)
		}

		if len(views) > 0 {
			end.Layers = []ProjectionLayer{{Space: d.space, Views: views}}
		}
	}

	d.phase = PhaseFrameSubmitted

	if err := d.rt.EndFrame(d.session, end); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}

	return nil
}

func (d *Driver) copyEye(eye int, source pulse.FramebufferHandle, sourceRect pulse.Rectangle2u) (ProjectionView, error) {
	sc := d.swapchains[eye]
	if sc == nil {
		return ProjectionView{}, fmt.Errorf("no swapchain for eye %d", eye)
	}

	index, err := d.rt.AcquireSwapchainImage(sc.handle)
	if err != nil {
		return ProjectionView{}, fmt.Errorf("acquire swapchain image: %w", err)
	}

	if err := d.rt.WaitSwapchainImage(sc.handle, InfiniteTimeout); err != nil {
		// keep acquire and release balanced, or the image ring drifts
		if releaseErr := d.rt.ReleaseSwapchainImage(sc.handle); releaseErr != nil {
			slog.Warn("Failed to release swapchain image", slog.Int("eye", eye), slog.String("err", releaseErr.Error()))
		}

		return ProjectionView{}, fmt.Errorf("wait swapchain image: %w", err)
	}

	var copyErr error
	if int(index) < len(sc.images) {
		copyErr = d.blitToTexture(source, sourceRect, sc.images[index], sc.width, sc.height)
	} else {
		copyErr = fmt.Errorf("swapchain image index %d out of range", index)
	}

	// the copy must reach the gpu before the runtime reads the image
	d.dev.Flush()

	// the image must go back to the runtime even if the copy failed
	if err := d.rt.ReleaseSwapchainImage(sc.handle); err != nil {
		return ProjectionView{}, fmt.Errorf("release swapchain image: %w", err)
	}

	if copyErr != nil {
		return ProjectionView{}, copyErr
	}

	return ProjectionView{
		Pose:      d.views[eye].Pose,
		Fov:       d.views[eye].Fov,
		Swapchain: sc.handle,
		ImageRect: pulse.RectangleFromXYWH(0, 0, sc.width, sc.height),
	}, nil
}

// blitToTexture copies a region of source into texture through a temporary framebuffer.
func (d *Driver) blitToTexture(source pulse.FramebufferHandle, sourceRect pulse.Rectangle2u, texture pulse.TextureHandle, width, height uint32) error {
	state := d.dev.State()
	defer state.Restore(d.dev)

	fb, err := d.dev.CreateFramebuffer()
	if err != nil {
		return fmt.Errorf("create framebuffer: %w", err)
	}

	defer d.dev.DeleteFramebuffer(fb)

	d.dev.BindFramebuffer(fb)
	d.dev.FramebufferTexture(pulse.AttachmentColor, texture)

	if err := d.dev.CheckFramebuffer(); err != nil {
		return err
	}

	d.dev.BlitFramebuffer(source, fb, sourceRect, pulse.RectangleFromXYWH(0, 0, width, height))

	return nil
}

// Shutdown ends a running session and destroys all runtime objects in
// reverse creation order. The driver can be initialized again afterwards.
func (d *Driver) Shutdown() {
	if d.phase == PhaseUninitialized {
		return
	}

	if d.running {
		if err := d.rt.EndSession(d.session); err != nil {
			slog.Warn("Failed to end session", slog.String("err", err.Error()))
		}

		d.running = false
	}

	for eye, sc := range d.swapchains {
		if sc != nil {
			warnOnError(d.rt.DestroySwapchain(sc.handle), "Failed to destroy swapchain", slog.Int("eye", eye))
			d.swapchains[eye] = nil
		}
	}

	if d.space != 0 {
		warnOnError(d.rt.DestroySpace(d.space), "Failed to destroy reference space")
		d.space = 0
	}

	warnOnError(d.rt.DestroySession(d.session), "Failed to destroy session")
	warnOnError(d.rt.DestroyInstance(d.instance), "Failed to destroy instance")

	d.session = 0
	d.instance = 0
	d.views = nil
	d.phase = PhaseUninitialized
	d.sessionState = SessionUnknown

	slog.Info("XR session destroyed")
}

func warnOnError(err error, msg string, attrs ...any) {
	if err == nil {
		return
	}

	slog.Warn(msg, append(attrs, slog.String("err", err.Error()))...)
}
