package session

import (
	"sync"
	"time"
)

// TimedPlayback simulates media playback against the wall clock. Used by
// the headless simulator; a browser player satisfies Playback with real
// media element positions instead.
type TimedPlayback struct {
	start    time.Time
	duration time.Duration

	mu      sync.Mutex
	ended   chan struct{}
	endOnce sync.Once
}

// NewTimedPlayback starts a simulated playback of the given duration.
func NewTimedPlayback(duration time.Duration) *TimedPlayback {
	p := &TimedPlayback{
		start:    time.Now(),
		duration: duration,
		ended:    make(chan struct{}),
	}
	time.AfterFunc(duration, p.end)
	return p
}

func (p *TimedPlayback) Progress() float64 {
	if p.duration <= 0 {
		return 1
	}
	frac := float64(time.Since(p.start)) / float64(p.duration)
	if frac > 1 {
		frac = 1
	}
	return frac
}

func (p *TimedPlayback) Ended() <-chan struct{} {
	return p.ended
}

func (p *TimedPlayback) end() {
	p.endOnce.Do(func() { close(p.ended) })
}
