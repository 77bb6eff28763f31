package orion

import (
	"time"
)

// FrameTimes keeps a running average of the frame durations.
type FrameTimes struct {
	FrameCount      uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration

	// Delta time to previous frame
	Delta time.Duration

	lastTime time.Time
}

func (t *FrameTimes) update(d time.Duration) {
	const window = 64

	t.Delta = d
	t.MaxDuration = max(t.MaxDuration, d)

	if t.FrameCount < window/2 {
		t.AverageDuration = d
	} else {
		t.AverageDuration = ((window-1)*t.AverageDuration + d) / window
	}
}

func (t *FrameTimes) FPS() float64 {
	if t.AverageDuration <= 0 {
		return 0
	}

	return 1.0 / t.AverageDuration.Seconds()
}

// Tick records the start of a new frame at now.
func (t *FrameTimes) Tick(now time.Time) {
	if t.FrameCount > 0 {
		t.update(now.Sub(t.lastTime))
	}

	t.lastTime = now
	t.FrameCount += 1
}

// fpsCounter counts frames per full second of frame time.
type fpsCounter struct {
	current float64

	frames  int
	elapsed time.Duration
}

func (c *fpsCounter) tick(dt time.Duration) {
	c.frames++
	c.elapsed += dt

	if c.elapsed >= time.Second {
		c.current = float64(c.frames) / c.elapsed.Seconds()
		c.frames = 0
		c.elapsed = 0
	}
}

// Limiter sleeps away the rest of a frame interval.
type Limiter struct {
	sleep func(time.Duration)
}

// Wait blocks until frameStart plus one interval of fps. It returns
// immediately if fps is zero or the frame took longer.
func (l Limiter) Wait(frameStart time.Time, fps int) {
	if fps <= 0 {
		return
	}

	interval := time.Second / time.Duration(fps)

	remaining := interval - time.Since(frameStart)
	if remaining <= 0 {
		return
	}

	sleep := l.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	sleep(remaining)
}
