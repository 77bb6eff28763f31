package stereo

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/stereorizer/pulse"
)

// EyeRenderer draws the scene of one eye into its frame target and shows
// the captured result on the currently bound framebuffer.
type EyeRenderer struct {
	dev    pulse.Device
	eye    EyeSlot
	target *pulse.FrameTarget

	quad      *pulse.Mesh
	visualize *pulse.Program
}

// NewEyeRenderer creates a renderer for the given eye. The visualization
// program is borrowed and must outlive the renderer.
func NewEyeRenderer(dev pulse.Device, eye EyeSlot, visualize *pulse.Program) (*EyeRenderer, error) {
	quad, err := pulse.NewFullscreenQuad(dev)
	if err != nil {
		return nil, fmt.Errorf("create fullscreen quad: %w", err)
	}

	return &EyeRenderer{
		dev:       dev,
		eye:       eye,
		target:    pulse.NewFrameTarget(dev, eye.String()),
		quad:      quad,
		visualize: visualize,
	}, nil
}

func (r *EyeRenderer) Eye() EyeSlot {
	return r.eye
}

func (r *EyeRenderer) Target() *pulse.FrameTarget {
	return r.target
}

// Draw issues the draw calls of all models with the given camera and light
// into whatever framebuffer is bound.
func (r *EyeRenderer) Draw(models []*pulse.Model, camera *Camera, light Light) {
	for _, model := range models {
		program := model.Program

		program.Bind()
		camera.Upload(program)
		light.Upload(program)
		model.UploadUniforms(program)

		model.Mesh.Draw()
	}
}

// RenderToTarget reloads changed programs and renders the models into the
// eye's frame target. It reports false if the target is unavailable.
func (r *EyeRenderer) RenderToTarget(models []*pulse.Model, camera *Camera, light Light) bool {
	reloadPrograms(models)

	if !r.target.BeginRender() {
		return false
	}

	defer r.target.EndRender()

	r.Draw(models, camera, light)

	return true
}

// reloadPrograms checks each distinct program of the models once.
func reloadPrograms(models []*pulse.Model) {
	seen := map[*pulse.Program]struct{}{}

	for _, model := range models {
		if _, ok := seen[model.Program]; ok {
			continue
		}

		seen[model.Program] = struct{}{}
		model.Program.ReloadIfChanged()
	}
}

// VisualizeColor draws the captured color of the eye into viewport.
func (r *EyeRenderer) VisualizeColor(viewport pulse.Rectangle2u) {
	r.visualizeTexture(r.target.ColorTexture(), viewport, func(p *pulse.Program) {
		p.SetUniformInt("linearizeDepth", 0)
	})
}

// VisualizeDepth draws the captured depth of the eye into viewport,
// converted back to linear distance between the near and far plane.
func (r *EyeRenderer) VisualizeDepth(viewport pulse.Rectangle2u, near, far float32) {
	r.visualizeTexture(r.target.DepthTexture(), viewport, func(p *pulse.Program) {
		p.SetUniformInt("linearizeDepth", 1)
		p.SetUniformFloat("nearPlane", near)
		p.SetUniformFloat("farPlane", far)
	})
}

func (r *EyeRenderer) visualizeTexture(texture pulse.TextureHandle, viewport pulse.Rectangle2u, configure func(p *pulse.Program)) {
	if texture == 0 {
		slog.Debug("Nothing to visualize", slog.String("eye", r.eye.String()))
		return
	}

	state := r.dev.State()
	defer state.Restore(r.dev)

	r.dev.SetDepthTest(false)
	r.dev.Viewport(viewport)

	r.visualize.Bind()
	r.dev.ActiveTexture(0)

	previous := r.dev.State().Texture
	r.dev.BindTexture(texture)

	r.visualize.SetUniformInt("screenTexture", 0)
	configure(r.visualize)

	r.quad.Draw()

	r.dev.BindTexture(previous)
}

// Release deletes the frame target and the fullscreen quad.
func (r *EyeRenderer) Release() {
	r.target.Release()
	r.quad.Release()
}
