package stereo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayModeText(t *testing.T) {
	for _, mode := range []DisplayMode{DisplayColor, DisplayDepth, DisplayReprojectionMask} {
		text, err := mode.MarshalText()
		require.NoError(t, err)

		var parsed DisplayMode
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, mode, parsed)
	}

	var mode DisplayMode
	require.ErrorIs(t, mode.UnmarshalText([]byte("wireframe")), ErrInvalidDisplayMode)
	require.NoError(t, mode.UnmarshalText([]byte(" Depth ")))
	assert.Equal(t, DisplayDepth, mode)
}

func TestOnlyRightEyeMayReproject(t *testing.T) {
	assert.False(t, DisplayReprojectionMask.AllowedFor(EyeLeft))
	assert.True(t, DisplayReprojectionMask.AllowedFor(EyeRight))
	assert.True(t, DisplayDepth.AllowedFor(EyeLeft))
	assert.False(t, DisplayMode(42).AllowedFor(EyeRight))
}
