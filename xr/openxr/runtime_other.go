//go:build !linux

package openxr

import (
	"errors"

	"github.com/oliverbestmann/stereorizer/xr"
)

var ErrUnsupported = errors.New("openxr is only supported on linux")

// Runtime is not available on this platform.
type Runtime struct {
	xr.Runtime
}

func Load() (*Runtime, error) {
	return nil, ErrUnsupported
}
