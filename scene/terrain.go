package scene

import (
	"github.com/furui/fastnoiselite-go"
	"github.com/oliverbestmann/stereorizer/pulse"
)

type TerrainOptions struct {
	// Size is the edge length of the square terrain in world units.
	Size float32

	// Resolution is the number of quads along each edge.
	Resolution int

	// Height scales the noise values in [-1, 1] to world units.
	Height float32

	Frequency float32
	Octaves   int

	// Offset shifts the sampled noise region, different offsets give
	// different landscapes.
	Offset [2]float32
}

func DefaultTerrainOptions() TerrainOptions {
	return TerrainOptions{
		Size:       40,
		Resolution: 64,
		Height:     2,
		Frequency:  0.05,
		Octaves:    4,
	}
}

// Terrain builds a height field from fractal simplex noise, centered at the
// origin in the XZ plane. Normals are smooth.
func Terrain(opts TerrainOptions) Geometry {
	res := max(opts.Resolution, 1)

	noise := fastnoiselite.NewNoise()
	noise.SetNoiseType(fastnoiselite.NoiseTypeOpenSimplex2)
	noise.FractalType = fastnoiselite.FractalTypeFBm
	noise.Frequency = fastnoiselite.FNLfloat(opts.Frequency)
	noise.SetFractalOctaves(max(opts.Octaves, 1))

	step := opts.Size / float32(res)
	origin := -opts.Size / 2

	heightAt := func(x, z float32) float32 {
		sx := fastnoiselite.FNLfloat(x + opts.Offset[0])
		sz := fastnoiselite.FNLfloat(z + opts.Offset[1])
		return float32(noise.GetNoise2D(sx, sz)) * opts.Height
	}

	g := Geometry{Name: "terrain"}

	for row := 0; row <= res; row++ {
		for col := 0; col <= res; col++ {
			x := origin + float32(col)*step
			z := origin + float32(row)*step

			// central differences
			dx := heightAt(x+step, z) - heightAt(x-step, z)
			dz := heightAt(x, z+step) - heightAt(x, z-step)
			normal := Vec{-dx, 2 * step, -dz}.Normalize()

			g.Vertices = append(g.Vertices, pulse.Vertex{
				Position: Vec{x, heightAt(x, z), z},
				Normal:   normal,
			})
		}
	}

	stride := uint32(res + 1)

	for row := range uint32(res) {
		for col := range uint32(res) {
			topLeft := row*stride + col
			topRight := topLeft + 1
			bottomLeft := topLeft + stride
			bottomRight := bottomLeft + 1

			// rows grow towards +z, wind counter clockwise seen from above
			g.Indices = append(g.Indices,
				topLeft, bottomLeft, topRight,
				topRight, bottomLeft, bottomRight,
			)
		}
	}

	return g
}
