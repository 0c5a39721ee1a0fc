package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when told to. Due callbacks run on the
// goroutine calling Advance, in deadline order, with Now reporting each
// callback's own deadline while it runs.
type Manual struct {
	mu  sync.Mutex
	now time.Time
	q   queue
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.q.schedule(m.now.Add(d), f)
	return &timer{mu: &m.mu, q: &m.q, e: e}
}

// Advance moves the clock forward by d, firing every callback that falls due.
// Callbacks scheduled by a firing callback also run if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.advanceLocked(m.now.Add(d))
	m.mu.Unlock()
}

// AdvanceTo moves the clock to t. Moving backwards is ignored.
func (m *Manual) AdvanceTo(t time.Time) {
	m.mu.Lock()
	m.advanceLocked(t)
	m.mu.Unlock()
}

func (m *Manual) advanceLocked(target time.Time) {
	for {
		e := m.q.popDue(target)
		if e == nil {
			break
		}
		if e.at.After(m.now) {
			m.now = e.at
		}
		m.mu.Unlock()
		e.fn()
		m.mu.Lock()
	}
	if target.After(m.now) {
		m.now = target
	}
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.Len()
}
