package orion

import (
	"log/slog"
	"time"
)

type stage int

const (
	stageXRSync stage = iota
	stageLeftEye
	stageRightEye
	stageSubmit
	stageCount
)

var stageNames = [stageCount]string{"xrSync", "leftEye", "rightEye", "submit"}

// frameProfile measures the stages of each frame and logs their averages
// once per second.
type frameProfile struct {
	now func() time.Time

	frameStart time.Time
	last       time.Time

	frames int
	total  [stageCount]time.Duration

	lastReport time.Time
}

func (p *frameProfile) clock() time.Time {
	if p.now != nil {
		return p.now()
	}

	return time.Now()
}

func (p *frameProfile) startFrame() {
	now := p.clock()

	p.frameStart = now
	p.last = now

	if p.lastReport.IsZero() {
		p.lastReport = now
	}
}

// mark ends the given stage.
func (p *frameProfile) mark(s stage) {
	now := p.clock()

	p.total[s] += now.Sub(p.last)
	p.last = now
}

func (p *frameProfile) endFrame() {
	p.frames++

	if p.last.Sub(p.lastReport) < time.Second {
		return
	}

	attrs := make([]any, 0, stageCount+1)
	attrs = append(attrs, slog.Int("frames", p.frames))

	for s, total := range p.total {
		attrs = append(attrs, slog.Duration(stageNames[s], total/time.Duration(p.frames)))
	}

	slog.Debug("Frame profile", attrs...)

	p.frames = 0
	p.total = [stageCount]time.Duration{}
	p.lastReport = p.last
}

// averages returns the mean duration per stage since the last report.
func (p *frameProfile) averages() map[string]time.Duration {
	result := map[string]time.Duration{}
	if p.frames == 0 {
		return result
	}

	for s, total := range p.total {
		result[stageNames[s]] = total / time.Duration(p.frames)
	}

	return result
}
