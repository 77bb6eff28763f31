package scene

import (
	"embed"
	"fmt"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

//go:embed assets/*.obj
var assets embed.FS

// Demo builds the scene of the example programs: a noise terrain, a row of
// cubes and a pyramid loaded from an embedded OBJ file. All models share
// the given program.
func Demo(dev pulse.Device, program *pulse.Program) ([]*pulse.Model, error) {
	var models []*pulse.Model

	add := func(g Geometry, color pulse.Color, transform glm.Mat4f) error {
		mesh, err := g.Upload(dev)
		if err != nil {
			return fmt.Errorf("upload %q: %w", g.Name, err)
		}

		model := pulse.NewModel(mesh, program)
		model.Color = color
		model.Transform = transform
		models = append(models, model)

		return nil
	}

	terrain := Terrain(DefaultTerrainOptions())
	if err := add(terrain, pulse.ColorLinearRGBA(0.3, 0.55, 0.25, 1), glm.TranslationMat4[float32](0, -2, 0)); err != nil {
		return nil, err
	}

	cube := Cube(1)
	for idx := range 5 {
		x := float32(idx-2) * 2
		color := pulse.ColorLinearRGBA(0.8, 0.2+0.15*float32(idx), 0.2, 1)

		if err := add(cube, color, glm.TranslationMat4(x, 0, -4)); err != nil {
			return nil, err
		}
	}

	pyramids, err := LoadOBJFile(assets, "assets/pyramid.obj")
	if err != nil {
		return nil, err
	}

	for _, pyramid := range pyramids {
		if err := add(pyramid, pulse.ColorLinearRGBA(0.9, 0.8, 0.3, 1), glm.TranslationMat4[float32](0, -1, -8)); err != nil {
			return nil, err
		}
	}

	return models, nil
}
