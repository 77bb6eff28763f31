package orion

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/oliverbestmann/stereorizer/config"
	"github.com/oliverbestmann/stereorizer/glimpse"
	"github.com/oliverbestmann/stereorizer/stereo"
)

const ipdStep = 0.002

type LoopState struct {
	Window     glimpse.Window
	Compositor *Compositor

	// Configs delivers changed settings, may be nil.
	Configs <-chan config.Config

	FrameTimes FrameTimes
	Limiter    Limiter

	lastFrame time.Time
}

func loopOnce(loopState *LoopState) error {
	frameStart := time.Now()

	dt := time.Duration(0)
	if !loopState.lastFrame.IsZero() {
		dt = frameStart.Sub(loopState.lastFrame)
	}

	loopState.lastFrame = frameStart
	loopState.FrameTimes.Tick(frameStart)

	// poll input first to keep input lag low
	input := loopState.Window.PollInput()

	applyConfigChanges(loopState.Compositor, loopState.Configs)
	handleHotkeys(loopState.Window, loopState.Compositor, input)

	width, height := loopState.Window.FramebufferSize()

	if err := loopState.Compositor.RenderFrame(input, dt, width, height); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}

	loopState.Window.SwapBuffers()

	loopState.Limiter.Wait(frameStart, loopState.Compositor.TargetFPS())

	return nil
}

func applyConfigChanges(c *Compositor, configs <-chan config.Config) {
	for {
		select {
		case cfg, ok := <-configs:
			if !ok {
				return
			}

			ApplySettings(c, cfg.Stereo)

		default:
			return
		}
	}
}

// ApplySettings updates the compositor from the stereo section of a config.
// Invalid values are logged and skipped.
func ApplySettings(c *Compositor, settings config.Stereo) {
	if settings.IPD != c.IPD() {
		c.SetIPD(settings.IPD)
	}

	if err := c.SetLeftDisplayMode(settings.LeftMode); err != nil {
		slog.Warn("Ignoring left display mode", slog.String("err", err.Error()))
	}

	if err := c.SetRightDisplayMode(settings.RightMode); err != nil {
		slog.Warn("Ignoring right display mode", slog.String("err", err.Error()))
	}

	if err := c.SetTargetFPS(settings.TargetFPS); err != nil {
		slog.Warn("Ignoring target fps", slog.String("err", err.Error()))
	}
}

func handleHotkeys(win glimpse.Window, c *Compositor, input glimpse.InputState) {
	keys := &input.Keys

	if keys.IsJustPressed(glimpse.KeyEscape) {
		win.SetShouldClose()
	}

	if keys.IsJustPressed(glimpse.KeyTab) {
		mode := stereo.DisplayDepth
		if c.LeftDisplayMode() == stereo.DisplayDepth {
			mode = stereo.DisplayColor
		}

		_ = c.SetLeftDisplayMode(mode)
	}

	rightModes := map[glimpse.Key]stereo.DisplayMode{
		glimpse.Key1: stereo.DisplayColor,
		glimpse.Key2: stereo.DisplayDepth,
		glimpse.Key3: stereo.DisplayReprojectionMask,
	}

	for key, mode := range rightModes {
		if keys.IsJustPressed(key) {
			_ = c.SetRightDisplayMode(mode)
		}
	}

	if keys.IsJustPressed(glimpse.KeyPlus) {
		c.SetIPD(c.IPD() + ipdStep)
	}

	if keys.IsJustPressed(glimpse.KeyMinus) {
		c.SetIPD(c.IPD() - ipdStep)
	}

	if keys.IsJustPressed(glimpse.KeyR) {
		slog.Info("Frame rate",
			slog.Float64("fps", c.CurrentFPS()),
			slog.Float64("ipd", float64(c.IPD())),
			slog.String("left", c.LeftDisplayMode().String()),
			slog.String("right", c.RightDisplayMode().String()),
		)
	}
}
