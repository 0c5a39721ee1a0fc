// Package session runs the timing components of one page load and publishes
// what the page should show as a stream of events.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zachkp/zach-portfolio/internal/clock"
	"github.com/Zachkp/zach-portfolio/internal/countup"
	"github.com/Zachkp/zach-portfolio/internal/greeting"
	"github.com/Zachkp/zach-portfolio/internal/logging"
	"github.com/Zachkp/zach-portfolio/internal/store"
	"github.com/Zachkp/zach-portfolio/internal/visibility"
)

// Session errors.
var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
)

// EventKind names what changed on the page.
type EventKind string

const (
	EventGreeting        EventKind = "greeting"
	EventPreloaderHidden EventKind = "preloader-hidden"
	EventPreloaderDone   EventKind = "preloader-done"
	EventAge             EventKind = "age"
)

// Event is one update for the page.
type Event struct {
	Kind     EventKind `json:"kind"`
	Index    int       `json:"index"`
	Text     string    `json:"text,omitempty"`
	Language string    `json:"language,omitempty"`
	Value    float64   `json:"value"`
	At       time.Time `json:"at"`
}

// Recorder receives session milestones.
type Recorder interface {
	RecordSessionEvent(ctx context.Context, sessionID string, kind store.SessionEventKind) error
}

// Options configure every session.
type Options struct {
	Greeting greeting.Config

	// AgeTarget is the value the about section counts up to once visible.
	AgeTarget float64

	// CountUpDuration is the length of the count-up animation.
	// Default: 1s.
	CountUpDuration time.Duration

	// FrameInterval is the delay between animation frames.
	// Default: countup.DefaultFrameInterval.
	FrameInterval time.Duration

	// Region is the page region whose visibility starts the count-up.
	// Default: "about".
	Region string

	// Threshold is the visible fraction of Region that counts as seen.
	// Default: visibility.DefaultThreshold.
	Threshold float64

	// EventBuffer is the capacity of the event channel.
	// Default: 256.
	EventBuffer int

	Recorder Recorder
}

// DefaultOptions returns the page defaults: default greetings, count up to 26
// over one second when "about" is half visible.
func DefaultOptions() Options {
	return Options{
		Greeting:        greeting.DefaultConfig(),
		AgeTarget:       26,
		CountUpDuration: time.Second,
		FrameInterval:   countup.DefaultFrameInterval,
		Region:          "about",
		Threshold:       visibility.DefaultThreshold,
		EventBuffer:     256,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CountUpDuration <= 0 {
		o.CountUpDuration = def.CountUpDuration
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = def.FrameInterval
	}
	if o.Region == "" {
		o.Region = def.Region
	}
	if o.Threshold <= 0 {
		o.Threshold = def.Threshold
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = def.EventBuffer
	}
	return o
}

// Session is one page load. Apart from New, its methods must be called from
// the clock's delivery context.
type Session struct {
	id   string
	opts Options
	clk  clock.Clock

	seq      *greeting.Sequencer
	anim     *countup.Animator
	observer *visibility.ThresholdObserver
	sub      *visibility.Subscription

	events  chan Event
	held    float64
	started bool
	closed  bool
	dropped int

	logger zerolog.Logger
}

// New builds an idle session on clk.
func New(id string, clk clock.Clock, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if len(opts.Greeting.Entries) == 0 {
		return nil, greeting.ErrNoEntries
	}
	anim, err := countup.New(clk, countup.WithFrameInterval(opts.FrameInterval))
	if err != nil {
		return nil, err
	}
	return &Session{
		id:       id,
		opts:     opts,
		clk:      clk,
		anim:     anim,
		observer: visibility.NewThresholdObserver(opts.Threshold),
		events:   make(chan Event, opts.EventBuffer),
		logger:   logging.Component("session").With().Str("session_id", id).Logger(),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Events returns the event stream. It is closed when the session closes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Start runs the greeting screen and begins watching the count-up region.
// Calling it again returns the same stream.
func (s *Session) Start() (<-chan Event, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.started {
		return s.events, nil
	}

	seq, err := greeting.Start(s.clk, s.opts.Greeting, s.onPreloaderDone, greeting.WithOnChange(s.onGreetingChange))
	if err != nil {
		return nil, err
	}
	s.seq = seq
	s.started = true
	s.sub = s.observer.Observe(s.opts.Region, s.onRegionVisible)

	s.publishGreeting(seq.State())
	s.record(store.SessionStarted)
	s.logger.Debug().
		Int("greetings", len(s.opts.Greeting.Entries)).
		Dur("total", s.opts.Greeting.Total()).
		Msg("session started")
	return s.events, nil
}

// ReportVisibility records the visible fraction of a region and reports
// whether it started the count-up.
func (s *Session) ReportVisibility(region string, ratio float64) bool {
	if s.closed || !s.started {
		return false
	}
	return s.observer.Report(region, ratio)
}

// SetAge changes the held value behind the counter. Any change restarts the
// count-up; zero parks it.
func (s *Session) SetAge(v float64) {
	if s.closed || v == s.held {
		return
	}
	s.held = v
	s.anim.Run(v, s.opts.CountUpDuration, s.onAgeFrame)
}

// Greeting returns the current greeting state.
func (s *Session) Greeting() greeting.State {
	if s.seq == nil {
		return greeting.State{Visible: true}
	}
	return s.seq.State()
}

// Age returns the displayed age.
func (s *Session) Age() float64 {
	return s.anim.Displayed()
}

// Close tears the session down. Nothing is published afterwards and the event
// channel is closed.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.seq != nil {
		s.seq.Stop()
	}
	s.anim.Stop()
	if s.sub != nil {
		s.sub.Cancel()
	}
	close(s.events)
	if s.started {
		s.record(store.SessionClosed)
	}
	if s.dropped > 0 {
		s.logger.Warn().Int("dropped", s.dropped).Msg("events dropped for slow reader")
	}
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	return s.closed
}

func (s *Session) onGreetingChange(st greeting.State) {
	switch st.Phase {
	case greeting.PhaseShowing:
		s.publishGreeting(st)
	case greeting.PhaseHidden:
		s.publish(Event{Kind: EventPreloaderHidden, Index: st.Index})
	}
}

func (s *Session) onPreloaderDone() {
	s.publish(Event{Kind: EventPreloaderDone, Index: s.seq.State().Index})
	s.record(store.PreloaderCompleted)
}

func (s *Session) onRegionVisible() {
	s.record(store.AgeRevealed)
	s.SetAge(s.opts.AgeTarget)
}

func (s *Session) onAgeFrame(v float64) {
	s.publish(Event{Kind: EventAge, Value: v})
}

func (s *Session) publishGreeting(st greeting.State) {
	entry := s.opts.Greeting.Entries[st.Index]
	s.publish(Event{Kind: EventGreeting, Index: st.Index, Text: entry.Text, Language: entry.Language})
}

// publish never blocks the clock; a full buffer drops the event.
func (s *Session) publish(ev Event) {
	if s.closed {
		return
	}
	ev.At = s.clk.Now()
	select {
	case s.events <- ev:
	default:
		s.dropped++
	}
}

func (s *Session) record(kind store.SessionEventKind) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.RecordSessionEvent(context.Background(), s.id, kind); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("failed to record session event")
	}
}
