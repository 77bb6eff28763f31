package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oliverbestmann/stereorizer/stereo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	config, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, Default(), config)
	assert.InDelta(t, 0.064, config.Stereo.IPD, 1e-6)
}

func TestParse_Overrides(t *testing.T) {
	doc := `
window:
  width: 2560
  height: 1440
stereo:
  ipd: 0.07
  rightMode: reprojection
  targetFPS: 0
shaders:
  directory: ./shaders
`

	config, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, uint32(2560), config.Window.Width)
	assert.Equal(t, "stereorizer", config.Window.Title)
	assert.InDelta(t, 0.07, config.Stereo.IPD, 1e-6)
	assert.Equal(t, stereo.DisplayReprojectionMask, config.Stereo.RightMode)
	assert.Equal(t, stereo.DisplayColor, config.Stereo.LeftMode)
	assert.Zero(t, config.Stereo.TargetFPS)
	assert.Equal(t, "./shaders", config.Shaders.Directory)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("stereo:\n  eyeDistance: 0.1\n"))
	require.Error(t, err)
}

func TestParse_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"left reprojection": "stereo:\n  leftMode: reprojection\n",
		"far before near":   "stereo:\n  near: 10\n  far: 5\n",
		"zero near":         "stereo:\n  near: 0\n",
		"fps out of range":  "stereo:\n  targetFPS: 500\n",
		"log level":         "log:\n  level: chatty\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_RejectsUnknownDisplayMode(t *testing.T) {
	_, err := Parse(strings.NewReader("stereo:\n  rightMode: hologram\n"))
	require.ErrorIs(t, err, stereo.ErrInvalidDisplayMode)
}

func TestLog_SlogLevel(t *testing.T) {
	level, err := Log{Level: "debug"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereorizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stereo:\n  ipd: 0.06\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configs, err := Watch(ctx, path)
	require.NoError(t, err)

	// a broken intermediate state is skipped
	require.NoError(t, os.WriteFile(path, []byte("stereo: [\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("stereo:\n  ipd: 0.08\n"), 0o644))

	deadline := time.After(5 * time.Second)

	for {
		select {
		case config := <-configs:
			if config.Stereo.IPD > 0.079 {
				cancel()

				// channel is closed after cancel
				for range configs {
				}

				return
			}

		case <-deadline:
			t.Fatal("no config change observed")
		}
	}
}
