package greeting

import (
	"time"

	"github.com/Zachkp/zach-portfolio/internal/clock"
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithOnChange registers a callback invoked after every state transition.
func WithOnChange(fn func(State)) Option {
	return func(s *Sequencer) {
		s.onChange = fn
	}
}

// Sequencer drives one run of the loading screen. A single timer is armed for
// the next transition at any time; Stop cancels it and the run goes quiet.
//
// Methods must be called from the clock's delivery context.
type Sequencer struct {
	clock      clock.Clock
	cfg        Config
	steps      []transition
	next       int
	start      time.Time
	state      State
	timer      clock.Timer
	onComplete func()
	onChange   func(State)
}

// Start begins a run at the first entry and returns its handle.
func Start(c clock.Clock, cfg Config, onComplete func(), opts ...Option) (*Sequencer, error) {
	if c == nil {
		return nil, ErrNilClock
	}
	if len(cfg.Entries) == 0 {
		return nil, ErrNoEntries
	}

	s := &Sequencer{
		clock:      c,
		cfg:        cfg,
		steps:      cfg.plan(),
		start:      c.Now(),
		state:      State{Phase: PhaseShowing, Index: 0, Visible: true},
		onComplete: onComplete,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.arm()
	return s, nil
}

// State returns the current snapshot.
func (s *Sequencer) State() State {
	return s.state
}

// Current returns the entry currently on screen.
func (s *Sequencer) Current() Entry {
	return s.cfg.Entries[s.state.Index]
}

// Config returns the configuration the run was started with.
func (s *Sequencer) Config() Config {
	return s.cfg
}

// Stop tears the run down. No transition or callback happens afterwards. It
// reports whether the run was still in progress.
func (s *Sequencer) Stop() bool {
	if s.state.Phase == PhaseCompleted || s.state.Phase == PhaseStopped {
		return false
	}
	s.state.Phase = PhaseStopped
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return true
}

func (s *Sequencer) arm() {
	if s.next >= len(s.steps) {
		return
	}
	due := s.start.Add(s.steps[s.next].at)
	s.timer = s.clock.AfterFunc(due.Sub(s.clock.Now()), s.tick)
}

func (s *Sequencer) tick() {
	s.timer = nil
	elapsed := s.clock.Now().Sub(s.start)

	// Late wakeups apply every overdue transition in order rather than jumping.
	for s.next < len(s.steps) && s.steps[s.next].at <= elapsed {
		if s.state.Phase == PhaseStopped {
			return
		}
		t := s.steps[s.next]
		s.next++

		s.state.Index = t.index
		s.state.Phase = t.phase
		s.state.Visible = t.phase == PhaseShowing

		if s.onChange != nil {
			s.onChange(s.state)
		}
		if t.phase == PhaseCompleted && s.onComplete != nil {
			s.onComplete()
		}
	}
	if s.state.Phase == PhaseStopped {
		return
	}
	s.arm()
}
