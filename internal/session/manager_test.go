package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Zachkp/zach-portfolio/internal/greeting"
	"github.com/Zachkp/zach-portfolio/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastOptions(rec Recorder) Options {
	return Options{
		Greeting: greeting.Config{
			Entries:      []greeting.Entry{{Text: "Hi", Language: "en"}, {Text: "Hola", Language: "es"}},
			StepInterval: 20 * time.Millisecond,
			FadeOut:      20 * time.Millisecond,
			Tail:         20 * time.Millisecond,
		},
		AgeTarget:       5,
		CountUpDuration: 50 * time.Millisecond,
		FrameInterval:   5 * time.Millisecond,
		Recorder:        rec,
	}
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, DefaultManagerConfig(), opts)
	t.Cleanup(func() {
		m.CloseAll()
		cancel()
	})
	return m
}

func collectUntil(t *testing.T, events <-chan Event, stop func(Event) bool) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
			if stop(ev) {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out after %d events", len(out))
		}
	}
}

func TestManagerRunsSessionEndToEnd(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestManager(t, fastOptions(rec))

	id, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	events, err := m.Start(id)
	require.NoError(t, err)

	got := collectUntil(t, events, func(ev Event) bool { return ev.Kind == EventPreloaderDone })
	assert.Equal(t, []EventKind{EventGreeting, EventGreeting, EventPreloaderHidden, EventPreloaderDone}, kinds(got))

	fired, err := m.Report(id, "about", 0.9)
	require.NoError(t, err)
	assert.True(t, fired)

	ages := collectUntil(t, events, func(ev Event) bool { return ev.Kind == EventAge && ev.Value == 5 })
	assert.Equal(t, 5.0, ages[len(ages)-1].Value)

	snap, err := m.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, 5.0, snap.Age)
	assert.Equal(t, greeting.PhaseCompleted, snap.Greeting.Phase)

	require.NoError(t, m.Close(id))
	_, open := <-events
	assert.False(t, open)
	assert.Zero(t, m.Len())

	assert.Eventually(t, func() bool {
		return len(rec.Kinds()) == 4
	}, time.Second, 10*time.Millisecond)
}

func TestManagerCloseBeforeCompletion(t *testing.T) {
	m := newTestManager(t, fastOptions(nil))
	opts := fastOptions(nil)
	opts.Greeting.TotalDuration = time.Hour
	m.opts = opts

	id, err := m.Create()
	require.NoError(t, err)
	events, err := m.Start(id)
	require.NoError(t, err)

	require.NoError(t, m.Close(id))
	for ev := range events {
		assert.NotEqual(t, EventPreloaderDone, ev.Kind)
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(t, fastOptions(nil))

	_, err := m.Start("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Report("missing", "about", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Snapshot("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Close("missing"), ErrNotFound)
}

func TestManagerSweep(t *testing.T) {
	m := newTestManager(t, fastOptions(nil))
	now := time.Now()
	m.now = func() time.Time { return now }

	stale, err := m.Create()
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, err := m.Create()
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Snapshot(stale)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Snapshot(fresh)
	assert.NoError(t, err)
}

func TestManagerRunClosesOnCancel(t *testing.T) {
	m := newTestManager(t, fastOptions(nil))
	_, err := m.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Zero(t, m.Len())
}

type slowRecorder struct {
	fakeRecorder
	delay time.Duration
}

func (r *slowRecorder) RecordSessionEvent(ctx context.Context, id string, kind store.SessionEventKind) error {
	time.Sleep(r.delay)
	return r.fakeRecorder.RecordSessionEvent(ctx, id, kind)
}

func TestManagerWaitFlushesMilestones(t *testing.T) {
	rec := &slowRecorder{delay: 20 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, DefaultManagerConfig(), fastOptions(rec))

	id, err := m.Create()
	require.NoError(t, err)
	_, err = m.Start(id)
	require.NoError(t, err)

	cancel()
	require.NoError(t, m.Run(ctx))
	m.Wait()

	assert.Contains(t, rec.Kinds(), store.SessionStarted)
	assert.Contains(t, rec.Kinds(), store.SessionClosed)
}
