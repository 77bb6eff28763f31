package stereo

import (
	"embed"
	"io/fs"
)

const (
	SceneShader        = "scene.shader"
	VisualizeShader    = "visualize.shader"
	ReprojectionShader = "reprojection.shader"
)

//go:embed shaders/*.shader
var shaders embed.FS

// Shaders returns the built in shader files. Their modification time is
// zero, so programs loaded from here never hot reload.
func Shaders() fs.FS {
	sub, err := fs.Sub(shaders, "shaders")
	if err != nil {
		panic(err)
	}

	return sub
}
