package stereo

import (
	"math"

	"github.com/oliverbestmann/stereorizer/glm"
	"github.com/oliverbestmann/stereorizer/pulse"
)

type LightType int32

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

// Light is shared by both eyes of a frame.
type Light struct {
	Type      LightType
	Position  glm.Vec3f
	Direction glm.Vec3f
	Color     pulse.Color
	Intensity float32

	// constant, linear and quadratic attenuation factors
	Attenuation glm.Vec3f

	InnerCone glm.Rad
	OuterCone glm.Rad
}

func DefaultLight() Light {
	return Light{
		Type:        LightDirectional,
		Position:    glm.Vec3f{0, 5, 0},
		Direction:   glm.Vec3f{-0.2, -1, -0.3},
		Color:       pulse.ColorWhite,
		Intensity:   1,
		Attenuation: glm.Vec3f{1, 0.09, 0.032},
		InnerCone:   glm.DegToRad[float32](12.5),
		OuterCone:   glm.DegToRad[float32](17.5),
	}
}

func (l Light) Upload(p *pulse.Program) {
	r, g, b, _ := l.Color.Components()

	p.SetUniformInt("light.type", int32(l.Type))
	p.SetUniformVec3("light.position", l.Position)
	p.SetUniformVec3("light.direction", l.Direction.Normalize())
	p.SetUniformVec3("light.color", glm.Vec3f{r, g, b})
	p.SetUniformFloat("light.intensity", l.Intensity)
	p.SetUniformVec3("light.attenuation", l.Attenuation)
	p.SetUniformFloat("light.innerCone", float32(math.Cos(float64(l.InnerCone))))
	p.SetUniformFloat("light.outerCone", float32(math.Cos(float64(l.OuterCone))))
}
