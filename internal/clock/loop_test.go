package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	go func() { _ = l.Run(context.Background()) }()
	t.Cleanup(func() {
		l.Close()
		<-l.Done()
	})
	return l
}

func TestLoopRunsTimersInOrder(t *testing.T) {
	l := startLoop(t)

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	record := func(n int) func() {
		return func() {
			mu.Lock()
			got = append(got, n)
			if len(got) == 3 {
				close(done)
			}
			mu.Unlock()
		}
	}
	l.AfterFunc(30*time.Millisecond, record(3))
	l.AfterFunc(10*time.Millisecond, record(1))
	l.AfterFunc(20*time.Millisecond, record(2))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timers did not fire")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestLoopDo(t *testing.T) {
	l := startLoop(t)

	value := 0
	require.True(t, l.Do(func() { value = 42 }))
	assert.Equal(t, 42, value)
}

func TestLoopStopFromLoopPreventsFire(t *testing.T) {
	l := startLoop(t)

	fired := make(chan struct{}, 1)
	var timer Timer
	require.True(t, l.Do(func() {
		timer = l.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })
	}))
	require.True(t, l.Do(func() { assert.True(t, timer.Stop()) }))

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestLoopRunTwice(t *testing.T) {
	l := startLoop(t)
	require.True(t, l.Do(func() {}))
	assert.ErrorIs(t, l.Run(context.Background()), ErrLoopRunning)
}

func TestLoopContextCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	require.True(t, l.Do(func() {}))
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Post(func() {}))
	assert.False(t, l.Do(func() {}))
}
