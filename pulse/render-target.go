package pulse

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
)

var ErrTargetUnavailable = errors.New("frame target unavailable")
var ErrTargetNotConfigured = errors.New("frame target not configured")

// FrameTarget is an offscreen render target with a color and a depth texture
// of the same size. It follows a two phase lifecycle: Configure records the
// size without touching the device, EnsureReady performs the allocation.
//
// The color and depth textures are either both allocated or both absent.
type FrameTarget struct {
	dev   Device
	label string

	width  uint32
	height uint32

	ClearColor Color

	framebuffer FramebufferHandle
	color       TextureHandle
	depth       TextureHandle

	// resources are allocated and match width/height
	ready bool

	// resources exist but belong to a previous size
	stale bool

	// allocation failed, stays set until the next Configure
	unavailable bool

	rendering bool
	previous  BindingState
}

func NewFrameTarget(dev Device, label string) *FrameTarget {
	return &FrameTarget{
		dev:        dev,
		label:      label,
		ClearColor: ColorLinearRGBA(0.1, 0.1, 0.1, 1),
	}
}

// Configure sets the size of the target. Existing resources are invalidated
// and will be deleted before the next allocation. No device calls are made.
func (t *FrameTarget) Configure(width, height uint32) {
	if width == t.width && height == t.height && !t.unavailable {
		return
	}

	t.width = width
	t.height = height
	t.unavailable = false

	if t.ready {
		t.ready = false
		t.stale = true
	}
}

// EnsureReady allocates the framebuffer and its attachments if required.
// The bindings of the caller are restored before returning.
func (t *FrameTarget) EnsureReady() error {
	if t.ready {
		return nil
	}

	if t.unavailable {
		return ErrTargetUnavailable
	}

	if t.stale {
		t.deleteResources()
	}

	if t.width == 0 || t.height == 0 {
		return ErrTargetNotConfigured
	}

	state := t.dev.State()
	defer state.Restore(t.dev)

	if err := t.allocate(); err != nil {
		t.deleteResources()
		t.unavailable = true

		slog.Error(
			"Failed to allocate frame target",
			slog.String("target", t.label),
			slog.Int("width", int(t.width)),
			slog.Int("height", int(t.height)),
			slog.String("err", err.Error()),
		)

		return fmt.Errorf("allocate frame target %q: %w", t.label, err)
	}

	t.ready = true

	slog.Info(
		"Allocated frame target",
		slog.String("target", t.label),
		slog.Int("width", int(t.width)),
		slog.Int("height", int(t.height)),
	)

	return nil
}

func (t *FrameTarget) allocate() error {
	var err error

	t.color, err = t.dev.CreateTexture(FormatRGBA8, t.width, t.height)
	if err != nil {
		return fmt.Errorf("create color texture: %w", err)
	}

	t.depth, err = t.dev.CreateTexture(FormatDepth32F, t.width, t.height)
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}

	t.framebuffer, err = t.dev.CreateFramebuffer()
	if err != nil {
		return fmt.Errorf("create framebuffer: %w", err)
	}

	t.dev.BindFramebuffer(t.framebuffer)
	t.dev.FramebufferTexture(AttachmentColor, t.color)
	t.dev.FramebufferTexture(AttachmentDepth, t.depth)

	if err := t.dev.CheckFramebuffer(); err != nil {
		return err
	}

	return nil
}

func (t *FrameTarget) deleteResources() {
	if t.framebuffer != 0 {
		t.dev.DeleteFramebuffer(t.framebuffer)
		t.framebuffer = 0
	}

	if t.color != 0 {
		t.dev.DeleteTexture(t.color)
		t.color = 0
	}

	if t.depth != 0 {
		t.dev.DeleteTexture(t.depth)
		t.depth = 0
	}

	t.ready = false
	t.stale = false
}

// BeginRender binds the target, sets the viewport to its size and clears
// color and depth. It returns false and does nothing if the target could
// not be allocated.
func (t *FrameTarget) BeginRender() bool {
	if t.rendering {
		return true
	}

	if err := t.EnsureReady(); err != nil {
		return false
	}

	t.previous = t.dev.State()
	t.rendering = true

	t.dev.BindFramebuffer(t.framebuffer)
	t.dev.Viewport(RectangleFromXYWH(0, 0, t.width, t.height))
	t.dev.SetDepthTest(true)
	t.dev.Clear(t.ClearColor, true)

	return true
}

// EndRender blocks until the gpu has finished writing the target, then
// restores the framebuffer, viewport and depth test of the caller.
func (t *FrameTarget) EndRender() {
	if !t.rendering {
		return
	}

	t.rendering = false

	t.dev.Flush()
	t.dev.Finish()

	t.dev.BindFramebuffer(t.previous.Framebuffer)
	t.dev.Viewport(t.previous.Viewport)
	t.dev.SetDepthTest(t.previous.DepthTest)
}

// Available reports whether the last allocation succeeded or was not yet attempted.
func (t *FrameTarget) Available() bool {
	return !t.unavailable
}

func (t *FrameTarget) Ready() bool {
	return t.ready
}

func (t *FrameTarget) ColorTexture() TextureHandle {
	return t.color
}

func (t *FrameTarget) DepthTexture() TextureHandle {
	return t.depth
}

func (t *FrameTarget) Framebuffer() FramebufferHandle {
	return t.framebuffer
}

func (t *FrameTarget) Size() (width, height uint32) {
	return t.width, t.height
}

func (t *FrameTarget) Label() string {
	return t.label
}

// ReadColor copies the color attachment back to the cpu. The image origin is
// the top left corner.
func (t *FrameTarget) ReadColor() (*image.RGBA, error) {
	if !t.ready {
		return nil, ErrTargetUnavailable
	}

	return ReadFramebuffer(t.dev, t.framebuffer, RectangleFromXYWH(0, 0, t.width, t.height)), nil
}

// Release deletes all device resources. The target can be reused after the
// next Configure.
func (t *FrameTarget) Release() {
	t.deleteResources()
	t.width = 0
	t.height = 0
}
