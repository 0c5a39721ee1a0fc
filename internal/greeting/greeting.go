// Package greeting implements the staged greeting loading screen: an ordered
// list of greetings shown one after another, a hide step, and a single
// completion signal once the fade-out has elapsed.
package greeting

import (
	"errors"
	"time"
)

// Sequencer errors.
var (
	ErrNoEntries = errors.New("greeting: no entries configured")
	ErrNilClock  = errors.New("greeting: clock is required")
)

// Default timings.
const (
	DefaultStepInterval = 500 * time.Millisecond
	DefaultFadeOut      = 500 * time.Millisecond
	DefaultTail         = 500 * time.Millisecond
)

// Entry is one greeting and the label of its language.
type Entry struct {
	Text     string `json:"text" yaml:"text"`
	Language string `json:"language" yaml:"language"`
}

// DefaultEntries is the greeting list shown on page load.
var DefaultEntries = []Entry{
	{Text: "Hello 👋", Language: "English"},
	{Text: "Hola 🖐️", Language: "Spanish"},
	{Text: "Bonjour 🤚", Language: "French"},
	{Text: "こんにちは 🙌", Language: "Japanese"},
	{Text: "مرحبا 🙋‍♂️", Language: "Arabic"},
	{Text: "नमस्ते 🙏", Language: "Namaste"},
}

// Config contains sequencer configuration.
type Config struct {
	// Entries are shown in order. Must not be empty.
	Entries []Entry

	// StepInterval is the time between two greetings.
	// Default: 500ms.
	StepInterval time.Duration

	// TotalDuration is when the loading screen hides, measured from start.
	// Zero derives it as (len(Entries)-1)*StepInterval + Tail.
	TotalDuration time.Duration

	// FadeOut is the delay between hiding and completion.
	// Default: 500ms.
	FadeOut time.Duration

	// Tail is how long the last greeting stays up when TotalDuration is derived.
	// Default: 500ms.
	Tail time.Duration
}

// DefaultConfig returns the page-load configuration: six greetings, 500ms apart,
// hidden at 3s and complete at 3.5s.
func DefaultConfig() Config {
	entries := make([]Entry, len(DefaultEntries))
	copy(entries, DefaultEntries)
	return Config{
		Entries:      entries,
		StepInterval: DefaultStepInterval,
		FadeOut:      DefaultFadeOut,
		Tail:         DefaultTail,
	}
}

// Total returns the time from start until the loading screen hides.
func (c Config) Total() time.Duration {
	if c.TotalDuration > 0 {
		return c.TotalDuration
	}
	n := len(c.Entries)
	if n == 0 {
		return max(c.Tail, 0)
	}
	return time.Duration(n-1)*max(c.StepInterval, 0) + max(c.Tail, 0)
}

// LastIndex returns the highest entry index that becomes current before the
// screen hides. Entries past it are never shown.
func (c Config) LastIndex() int {
	n := len(c.Entries)
	if n == 0 {
		return 0
	}
	if c.StepInterval <= 0 {
		return n - 1
	}
	reached := int(c.Total() / c.StepInterval)
	return min(reached, n-1)
}

// Phase is the sequencer's position in its lifecycle.
type Phase int

const (
	PhaseShowing Phase = iota
	PhaseHidden
	PhaseCompleted
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseShowing:
		return "showing"
	case PhaseHidden:
		return "hidden"
	case PhaseCompleted:
		return "completed"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is a snapshot of the sequencer.
type State struct {
	Phase   Phase
	Index   int
	Visible bool
}

// transition is one step of the precomputed plan, at an offset from start.
type transition struct {
	at    time.Duration
	phase Phase
	index int
}

// plan lists every transition of a run in firing order. An index change that
// lands exactly on the hide deadline is applied before hiding.
func (c Config) plan() []transition {
	step := max(c.StepInterval, 0)
	total := c.Total()
	last := c.LastIndex()

	steps := make([]transition, 0, last+2)
	for i := 1; i <= last; i++ {
		steps = append(steps, transition{at: time.Duration(i) * step, phase: PhaseShowing, index: i})
	}
	steps = append(steps,
		transition{at: total, phase: PhaseHidden, index: last},
		transition{at: total + max(c.FadeOut, 0), phase: PhaseCompleted, index: last},
	)
	return steps
}
