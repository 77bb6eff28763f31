package orion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/oliverbestmann/stereorizer/config"
	"github.com/oliverbestmann/stereorizer/glimpse"
	"github.com/oliverbestmann/stereorizer/pulse"
	"github.com/oliverbestmann/stereorizer/pulse/opengl"
	"github.com/oliverbestmann/stereorizer/stereo"
	"github.com/oliverbestmann/stereorizer/xr"
)

const programCacheSize = 32

// SetupFunc populates the scene before the first frame.
type SetupFunc func(dev pulse.Device, programs *pulse.ProgramCache, c *Compositor) error

type RunOptions struct {
	Config config.Config

	// ConfigPath is watched for changes of the stereo settings if set.
	ConfigPath string

	// Runtime connects to a head mounted display. It is only used if
	// XR is enabled in the config.
	Runtime xr.Runtime

	// Setup is the only field that is required.
	Setup SetupFunc
}

// Run opens the window, renders until it is closed and releases everything
// on return. It must be called from the main goroutine.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Setup == nil {
		return errors.New("setup must not be nil")
	}

	cfg := opts.Config

	win, err := glimpse.NewWindow(glimpse.Options{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Title:  cfg.Window.Title,
		VSync:  cfg.Window.VSync,
	})
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	defer win.Terminate()

	dev, err := opengl.New()
	if err != nil {
		return fmt.Errorf("initialize opengl: %w", err)
	}

	programs := pulse.NewProgramCache(dev, shaderFS(cfg.Shaders), programCacheSize)
	defer programs.Purge()

	var driver *xr.Driver

	if cfg.XR.Enabled && opts.Runtime != nil {
		driver = xr.NewDriver(opts.Runtime, dev, xr.Options{
			ApplicationName:    cfg.XR.ApplicationName,
			OptionalExtensions: cfg.XR.Extensions,
			Near:               cfg.Stereo.Near,
			Far:                cfg.Stereo.Far,
		})

		if err := driver.Init(xr.GraphicsOpenGL); err != nil {
			return fmt.Errorf("initialize xr: %w", err)
		}

		defer driver.Shutdown()

		// one eye per window half
		if width, height := driver.RecommendedSize(); width > 0 {
			win.SetSize(2*width, height)
		}
	}

	compositor, err := NewCompositor(dev, programs, Options{
		IPD:       cfg.Stereo.IPD,
		Near:      cfg.Stereo.Near,
		Far:       cfg.Stereo.Far,
		Fov:       cfg.Stereo.Fov,
		LeftMode:  cfg.Stereo.LeftMode,
		RightMode: cfg.Stereo.RightMode,
		TargetFPS: cfg.Stereo.TargetFPS,
		XR:        driver,
	})
	if err != nil {
		return fmt.Errorf("create compositor: %w", err)
	}

	defer compositor.Release()

	if err := opts.Setup(dev, programs, compositor); err != nil {
		return fmt.Errorf("setup scene: %w", err)
	}

	loopState := &LoopState{
		Window:     win,
		Compositor: compositor,
	}

	if opts.ConfigPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		configs, err := config.Watch(watchCtx, opts.ConfigPath)
		if err != nil {
			slog.Warn("Config changes will not be applied", slog.String("err", err.Error()))
		}

		loopState.Configs = configs
	}

	for !win.ShouldClose() {
		if ctx.Err() != nil {
			break
		}

		if err := loopOnce(loopState); err != nil {
			return err
		}
	}

	slog.Info(
		"Render loop finished",
		slog.Uint64("frames", loopState.FrameTimes.FrameCount),
		slog.Float64("fps", loopState.FrameTimes.FPS()),
	)

	return nil
}

// shaderFS prefers shaders from disk, which are reloaded when they change.
func shaderFS(shaders config.Shaders) fs.FS {
	if shaders.Directory == "" {
		return stereo.Shaders()
	}

	slog.Info("Loading shaders from disk", slog.String("directory", shaders.Directory))

	return os.DirFS(shaders.Directory)
}
