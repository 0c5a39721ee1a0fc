// Package countup animates a displayed number from zero up to a target with an
// ease-out curve, one frame at a time.
package countup

import (
	"errors"
	"math"
	"time"

	"github.com/Zachkp/zach-portfolio/internal/clock"
)

// ErrNilClock is returned by New without a clock.
var ErrNilClock = errors.New("countup: clock is required")

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// EaseOutQuart maps progress in [0,1] to 1-(1-x)^4.
func EaseOutQuart(x float64) float64 {
	return 1 - math.Pow(1-x, 4)
}

// ValueAt returns the displayed value elapsed into a run toward target.
func ValueAt(target float64, duration, elapsed time.Duration) float64 {
	if elapsed >= duration {
		return target
	}
	progress := float64(elapsed) / float64(duration)
	return math.Floor(target * EaseOutQuart(progress))
}

// Option configures an Animator.
type Option func(*Animator)

// WithFrameInterval sets the delay between frames.
func WithFrameInterval(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.frameInterval = d
		}
	}
}

// Animator owns the displayed value and at most one active run. Starting a new
// run supersedes the previous one.
//
// Methods must be called from the clock's delivery context.
type Animator struct {
	clock         clock.Clock
	frameInterval time.Duration

	token     uint64
	pending   clock.Timer
	target    float64
	duration  time.Duration
	displayed float64
	running   bool
}

// New returns an idle Animator displaying zero.
func New(c clock.Clock, opts ...Option) (*Animator, error) {
	if c == nil {
		return nil, ErrNilClock
	}
	a := &Animator{clock: c, frameInterval: DefaultFrameInterval}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Handle identifies one run.
type Handle struct {
	a     *Animator
	token uint64
}

// Token returns the run token, zero for runs that never started.
func (h Handle) Token() uint64 {
	return h.token
}

// Active reports whether the run is still animating.
func (h Handle) Active() bool {
	return h.a != nil && h.token != 0 && h.a.token == h.token && h.a.running
}

// Cancel stops the run if it is still the current one.
func (h Handle) Cancel() {
	if h.Active() {
		h.a.cancel()
	}
}

// Run animates from zero to target over duration, calling onFrame with every
// displayed value including the final exact target. A target of zero or less
// is the "not yet" sentinel: nothing is emitted and the displayed value is kept,
// though a run already in flight is cancelled.
func (a *Animator) Run(target float64, duration time.Duration, onFrame func(float64)) Handle {
	a.cancel()
	if target <= 0 {
		return Handle{}
	}

	a.token++
	tok := a.token
	a.target = target
	a.duration = duration
	a.displayed = 0
	a.running = true

	var start time.Time
	started := false
	var frame func()
	frame = func() {
		if tok != a.token {
			return
		}
		now := a.clock.Now()
		if !started {
			start, started = now, true
		}
		elapsed := now.Sub(start)
		a.displayed = ValueAt(target, duration, elapsed)
		finished := elapsed >= duration
		if finished {
			a.running = false
			a.pending = nil
		}
		if onFrame != nil {
			onFrame(a.displayed)
		}
		if finished || tok != a.token {
			return
		}
		a.pending = a.clock.AfterFunc(a.frameInterval, frame)
	}
	a.pending = a.clock.AfterFunc(0, frame)

	return Handle{a: a, token: tok}
}

// Stop cancels the active run, leaving the displayed value where it is.
func (a *Animator) Stop() {
	a.cancel()
}

// Displayed returns the last displayed value.
func (a *Animator) Displayed() float64 {
	return a.displayed
}

// Target returns the target of the most recent run.
func (a *Animator) Target() float64 {
	return a.target
}

// Running reports whether a run is animating.
func (a *Animator) Running() bool {
	return a.running
}

func (a *Animator) cancel() {
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
	if a.running {
		a.token++
		a.running = false
	}
}
