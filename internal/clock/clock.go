// Package clock measures frame time and optionally paces the render loop.
package clock

import (
	"time"

	"github.com/loov/hrtime"
)

// Clock reports time since start and between ticks using the high
// resolution timer.
type Clock struct {
	now   func() time.Duration
	start time.Duration
	last  time.Duration
	delta time.Duration
}

// New starts a clock at the current instant.
func New() *Clock {
	return newClock(hrtime.Now)
}

func newClock(now func() time.Duration) *Clock {
	start := now()
	return &Clock{now: now, start: start, last: start}
}

// Tick marks the start of a frame and returns the time since the previous
// tick.
func (c *Clock) Tick() time.Duration {
	current := c.now()
	c.delta = current - c.last
	c.last = current
	return c.delta
}

// Delta is the duration measured by the last Tick.
func (c *Clock) Delta() time.Duration {
	return c.delta
}

// Elapsed is the time since the clock started.
func (c *Clock) Elapsed() time.Duration {
	return c.now() - c.start
}

// Limiter caps the frame rate. A zero rate never blocks.
type Limiter struct {
	fps    int
	ticker *time.Ticker
}

// NewLimiter creates a limiter producing at most fps frames per second.
func NewLimiter(fps int) *Limiter {
	l := &Limiter{fps: fps}
	if fps > 0 {
		l.ticker = time.NewTicker(time.Second / time.Duration(fps))
	}
	return l
}

// Fps gets the configured frame cap.
func (l *Limiter) Fps() int {
	return l.fps
}

// Wait blocks until the next frame may start.
func (l *Limiter) Wait() {
	if l.ticker != nil {
		<-l.ticker.C
	}
}

// Stop releases the ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
