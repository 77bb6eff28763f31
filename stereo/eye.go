package stereo

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDisplayMode = errors.New("invalid display mode")

// EyeSlot selects the half of the display an eye renders to and the view
// index of the head mounted display that supplies its pose.
type EyeSlot int

const (
	EyeLeft EyeSlot = iota
	EyeRight
)

var Eyes = [2]EyeSlot{EyeLeft, EyeRight}

func (e EyeSlot) String() string {
	if e == EyeLeft {
		return "left"
	}

	return "right"
}

// ViewIndex is the index of the eye in the views reported by the runtime.
func (e EyeSlot) ViewIndex() int {
	return int(e)
}

// DisplayMode selects what an eye slot shows after rendering.
type DisplayMode int

const (
	// DisplayColor shows the lit scene.
	DisplayColor DisplayMode = iota

	// DisplayDepth shows the linearized depth buffer.
	DisplayDepth

	// DisplayReprojectionMask synthesizes the eye from the other eye's capture.
	DisplayReprojectionMask
)

var displayModeNames = map[DisplayMode]string{
	DisplayColor:            "color",
	DisplayDepth:            "depth",
	DisplayReprojectionMask: "reprojection",
}

func (m DisplayMode) String() string {
	if name, ok := displayModeNames[m]; ok {
		return name
	}

	return fmt.Sprintf("DisplayMode(%d)", int(m))
}

// AllowedFor reports whether the mode may be selected for the given eye.
// Only the right eye can be reprojected.
func (m DisplayMode) AllowedFor(eye EyeSlot) bool {
	if m == DisplayReprojectionMask {
		return eye == EyeRight
	}

	_, ok := displayModeNames[m]
	return ok
}

func (m DisplayMode) MarshalText() ([]byte, error) {
	name, ok := displayModeNames[m]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDisplayMode, int(m))
	}

	return []byte(name), nil
}

func (m *DisplayMode) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))

	for mode, name := range displayModeNames {
		if name == value {
			*m = mode
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrInvalidDisplayMode, value)
}
