package glm

import (
	"golang.org/x/mobile/exp/f32"
)

// Sincos returns the sine and cosine of r in single precision.
func Sincos(r Rad) (sin, cos float32) {
	return fastSincos(r)
}

func fastSincos(r Rad) (float32, float32) {
	return fastSin(r), fastCos(r)
}

func fastSin(r Rad) float32 {
	return f32.Sin(float32(r))
}

func fastCos(r Rad) float32 {
	return f32.Cos(float32(r))
}

func tan(r Rad) float32 {
	return f32.Tan(float32(r))
}
