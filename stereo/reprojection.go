package stereo

import (
	"errors"
	"log/slog"

	"github.com/oliverbestmann/stereorizer/pulse"
)

var ErrInvalidSource = errors.New("reprojection source textures are not valid")

const (
	sourceDepthUnit = 0
	sourceColorUnit = 1
)

// ReprojectionPass synthesizes an eye from the color and depth captured by
// the other eye. The shading, including the handling of disoccluded
// regions, lives in the reprojection program. This pass binds resources
// and refuses to run on missing source data.
type ReprojectionPass struct {
	dev     pulse.Device
	program *pulse.Program

	// maximum difference in window space depth before a fragment counts as disoccluded
	DepthTolerance float32
}

func NewReprojectionPass(dev pulse.Device, program *pulse.Program) *ReprojectionPass {
	return &ReprojectionPass{
		dev:            dev,
		program:        program,
		DepthTolerance: 0.005,
	}
}

// Render draws the models into dest as seen by destCamera, coloring them
// from the capture of sourceCamera in source. If the source textures are
// not live, dest is cleared, nothing is drawn and ErrInvalidSource is returned.
func (p *ReprojectionPass) Render(dest *pulse.FrameTarget, models []*pulse.Model, source *pulse.FrameTarget, sourceCamera, destCamera *Camera) error {
	if !p.validSource(source) {
		slog.Error(
			"Skipping reprojection, source textures are not valid",
			slog.String("source", source.Label()),
			slog.Int("color", int(source.ColorTexture())),
			slog.Int("depth", int(source.DepthTexture())),
		)

		if dest.BeginRender() {
			dest.EndRender()
		}

		return ErrInvalidSource
	}

	p.program.ReloadIfChanged()

	if !dest.BeginRender() {
		return pulse.ErrTargetUnavailable
	}

	defer dest.EndRender()

	state := p.dev.State()
	defer state.Restore(p.dev)

	p.program.Bind()
	destCamera.Upload(p.program)
	sourceCamera.UploadAsSource(p.program)
	p.program.SetUniformFloat("depthTolerance", p.DepthTolerance)

	restoreDepth := p.bindTexture(sourceDepthUnit, source.DepthTexture())
	defer restoreDepth()

	restoreColor := p.bindTexture(sourceColorUnit, source.ColorTexture())
	defer restoreColor()

	p.program.SetUniformInt("sourceDepth", sourceDepthUnit)
	p.program.SetUniformInt("sourceColor", sourceColorUnit)

	// the program stays bound for the whole batch
	for _, model := range models {
		p.program.SetUniformMat4("modelMatrix", model.Transform)
		model.Mesh.Draw()
	}

	return nil
}

// bindTexture binds tex to a texture unit and returns a function that puts
// back the previous binding of that unit.
func (p *ReprojectionPass) bindTexture(unit uint32, tex pulse.TextureHandle) func() {
	p.dev.ActiveTexture(unit)
	previous := p.dev.State().Texture
	p.dev.BindTexture(tex)

	return func() {
		p.dev.ActiveTexture(unit)
		p.dev.BindTexture(previous)
	}
}

func (p *ReprojectionPass) validSource(source *pulse.FrameTarget) bool {
	color, depth := source.ColorTexture(), source.DepthTexture()
	if color == 0 || depth == 0 {
		return false
	}

	return p.dev.IsTexture(color) && p.dev.IsTexture(depth)
}
