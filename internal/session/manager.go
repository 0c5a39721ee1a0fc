package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Zachkp/zach-portfolio/internal/clock"
	"github.com/Zachkp/zach-portfolio/internal/greeting"
	"github.com/Zachkp/zach-portfolio/internal/logging"
	"github.com/Zachkp/zach-portfolio/internal/store"
)

// ManagerConfig contains manager configuration.
type ManagerConfig struct {
	// TTL is how long a session may go untouched before it is swept.
	// Default: 30 minutes.
	TTL time.Duration

	// SweepInterval is how often expired sessions are swept.
	// Default: 1 minute.
	SweepInterval time.Duration
}

// DefaultManagerConfig returns sensible default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		TTL:           30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// hosted is a session together with the loop it runs on.
type hosted struct {
	session  *Session
	loop     *clock.Loop
	lastSeen time.Time
}

// Manager owns the live sessions. Each session runs on its own loop so one
// page's timers never wait behind another's.
type Manager struct {
	config  ManagerConfig
	opts    Options
	logger  zerolog.Logger
	baseCtx context.Context
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*hosted

	// writes tracks milestone writes still running off the loops.
	writes *sync.WaitGroup
}

// NewManager creates a manager. Session loops stop when ctx is cancelled.
func NewManager(ctx context.Context, config ManagerConfig, opts Options) *Manager {
	if config.TTL <= 0 {
		config.TTL = DefaultManagerConfig().TTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultManagerConfig().SweepInterval
	}
	writes := &sync.WaitGroup{}
	if opts.Recorder != nil {
		opts.Recorder = asyncRecorder{next: opts.Recorder, writes: writes, logger: logging.Component("session")}
	}
	return &Manager{
		config:   config,
		opts:     opts,
		logger:   logging.Component("sessions"),
		baseCtx:  ctx,
		now:      time.Now,
		sessions: make(map[string]*hosted),
		writes:   writes,
	}
}

// Create registers a new idle session and returns its id.
func (m *Manager) Create() (string, error) {
	id := uuid.NewString()
	loop := clock.NewLoop()
	s, err := New(id, loop, m.opts)
	if err != nil {
		return "", err
	}
	go func() {
		if err := loop.Run(m.baseCtx); err != nil && m.baseCtx.Err() == nil {
			m.logger.Error().Err(err).Str("session_id", id).Msg("session loop stopped")
		}
	}()

	m.mu.Lock()
	m.sessions[id] = &hosted{session: s, loop: loop, lastSeen: m.now()}
	m.mu.Unlock()
	return id, nil
}

// Start starts the session's greeting screen and returns its event stream.
func (m *Manager) Start(id string) (<-chan Event, error) {
	h, err := m.touch(id)
	if err != nil {
		return nil, err
	}
	var events <-chan Event
	if !h.loop.Do(func() { events, err = h.session.Start() }) {
		return nil, ErrClosed
	}
	return events, err
}

// Report forwards a visibility measurement to the session.
func (m *Manager) Report(id, region string, ratio float64) (bool, error) {
	h, err := m.touch(id)
	if err != nil {
		return false, err
	}
	var fired bool
	if !h.loop.Do(func() { fired = h.session.ReportVisibility(region, ratio) }) {
		return false, ErrClosed
	}
	return fired, nil
}

// Snapshot returns the session's greeting state and displayed age.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	h, err := m.touch(id)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if !h.loop.Do(func() {
		snap = Snapshot{Greeting: h.session.Greeting(), Age: h.session.Age()}
	}) {
		return Snapshot{}, ErrClosed
	}
	return snap, nil
}

// Close tears a session down and stops its loop.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	h, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	m.shutdown(h)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.config.TTL)

	m.mu.Lock()
	var expired []*hosted
	for id, h := range m.sessions {
		if h.lastSeen.Before(cutoff) {
			expired = append(expired, h)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, h := range expired {
		m.shutdown(h)
	}
	if len(expired) > 0 {
		m.logger.Debug().Int("count", len(expired)).Msg("swept idle sessions")
	}
	return len(expired)
}

// Run sweeps on the configured interval until ctx is cancelled, then closes
// every remaining session.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*hosted)
	m.mu.Unlock()
	for _, h := range all {
		m.shutdown(h)
	}
}

// Wait blocks until every recorded milestone has been written. Call it after
// Run or CloseAll and before closing the recorder's store.
func (m *Manager) Wait() {
	m.writes.Wait()
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	Greeting greeting.State `json:"greeting"`
	Age      float64       `json:"age"`
}

func (m *Manager) touch(id string) (*hosted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	h.lastSeen = m.now()
	return h, nil
}

func (m *Manager) shutdown(h *hosted) {
	if !h.loop.Do(h.session.Close) {
		// The loop is gone, so nothing else can touch the session.
		<-h.loop.Done()
		h.session.Close()
	}
	h.loop.Close()
}

// asyncRecorder writes milestones off the session loop.
type asyncRecorder struct {
	next   Recorder
	writes *sync.WaitGroup
	logger zerolog.Logger
}

func (r asyncRecorder) RecordSessionEvent(_ context.Context, sessionID string, kind store.SessionEventKind) error {
	r.writes.Add(1)
	go func() {
		defer r.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.next.RecordSessionEvent(ctx, sessionID, kind); err != nil {
			r.logger.Warn().Err(err).Str("session_id", sessionID).Str("kind", string(kind)).Msg("failed to record session event")
		}
	}()
	return nil
}
