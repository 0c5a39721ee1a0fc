package countup

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/zach-portfolio/internal/clock"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newAnimator(t *testing.T, frame time.Duration) (*Animator, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	a, err := New(clk, WithFrameInterval(frame))
	require.NoError(t, err)
	return a, clk
}

func TestEaseOutQuart(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutQuart(0))
	assert.Equal(t, 1.0, EaseOutQuart(1))
	assert.InDelta(t, 0.9375, EaseOutQuart(0.5), 1e-12)
}

func TestRunAgeScenario(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)

	type sample struct {
		at    time.Duration
		value float64
	}
	var frames []sample
	a.Run(26, time.Second, func(v float64) {
		frames = append(frames, sample{at: clk.Now().Sub(epoch), value: v})
	})

	clk.Advance(0)
	require.Len(t, frames, 1)
	assert.Equal(t, 0.0, frames[0].value)
	assert.Equal(t, 0.0, a.Displayed())

	clk.Advance(2 * time.Second)
	require.Len(t, frames, 101)
	for _, f := range frames[:len(frames)-1] {
		x := float64(f.at) / float64(time.Second)
		want := math.Floor(26 * (1 - math.Pow(1-x, 4)))
		assert.Equal(t, want, f.value, "at %v", f.at)
	}
	last := frames[len(frames)-1]
	assert.Equal(t, time.Second, last.at)
	assert.Equal(t, 26.0, last.value)
	assert.Equal(t, 26.0, a.Displayed())
	assert.False(t, a.Running())
	assert.Zero(t, clk.Pending())
}

func TestRunMonotonicAndConverges(t *testing.T) {
	for _, tc := range []struct {
		target   float64
		duration time.Duration
		frame    time.Duration
	}{
		{1, 100 * time.Millisecond, 16 * time.Millisecond},
		{26, time.Second, 16 * time.Millisecond},
		{1000, 1500 * time.Millisecond, 7 * time.Millisecond},
		{12.5, 300 * time.Millisecond, 33 * time.Millisecond},
	} {
		a, clk := newAnimator(t, tc.frame)
		var values []float64
		a.Run(tc.target, tc.duration, func(v float64) { values = append(values, v) })
		clk.Advance(tc.duration * 3)

		require.NotEmpty(t, values)
		assert.LessOrEqual(t, values[0], tc.target)
		for i := 1; i < len(values); i++ {
			assert.GreaterOrEqual(t, values[i], values[i-1], "target %v frame %d", tc.target, i)
		}
		assert.Equal(t, tc.target, values[len(values)-1])
		for _, v := range values[:len(values)-1] {
			assert.Equal(t, math.Floor(v), v)
		}
	}
}

func TestRunZeroIsNoop(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)
	calls := 0
	h := a.Run(0, time.Second, func(float64) { calls++ })
	clk.Advance(5 * time.Second)

	assert.Zero(t, calls)
	assert.Zero(t, a.Displayed())
	assert.Zero(t, h.Token())
	assert.False(t, h.Active())
	assert.Zero(t, clk.Pending())
}

func TestRunZeroKeepsDisplayedValue(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)
	a.Run(26, 100*time.Millisecond, nil)
	clk.Advance(time.Second)
	require.Equal(t, 26.0, a.Displayed())

	calls := 0
	a.Run(0, time.Second, func(float64) { calls++ })
	clk.Advance(time.Second)
	assert.Zero(t, calls)
	assert.Equal(t, 26.0, a.Displayed())
}

func TestRunSupersedesPreviousRun(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)

	var fromA, fromB []float64
	first := a.Run(1000, time.Second, func(v float64) { fromA = append(fromA, v) })
	second := a.Run(26, time.Second, func(v float64) { fromB = append(fromB, v) })

	clk.Advance(3 * time.Second)

	assert.Empty(t, fromA)
	require.NotEmpty(t, fromB)
	assert.Equal(t, 0.0, fromB[0])
	assert.Equal(t, 26.0, fromB[len(fromB)-1])
	assert.Greater(t, second.Token(), first.Token())
	assert.False(t, first.Active())
}

func TestRunSupersededMidway(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)

	var fromA, fromB []float64
	a.Run(1000, time.Second, func(v float64) { fromA = append(fromA, v) })
	clk.Advance(300 * time.Millisecond)
	seenA := len(fromA)
	require.NotZero(t, seenA)

	a.Run(26, time.Second, func(v float64) { fromB = append(fromB, v) })
	clk.Advance(3 * time.Second)

	assert.Len(t, fromA, seenA)
	assert.Equal(t, 0.0, fromB[0], "new run restarts from zero")
	assert.Equal(t, 26.0, a.Displayed())
}

func TestRunFromFrameCallback(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)
	var fromB []float64
	a.Run(50, time.Second, func(v float64) {
		if v > 0 && len(fromB) == 0 {
			a.Run(5, 100*time.Millisecond, func(v float64) { fromB = append(fromB, v) })
		}
	})
	clk.Advance(5 * time.Second)
	require.NotEmpty(t, fromB)
	assert.Equal(t, 5.0, a.Displayed())
}

func TestHandleCancel(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)
	calls := 0
	h := a.Run(26, time.Second, func(float64) { calls++ })
	clk.Advance(100 * time.Millisecond)
	shown := a.Displayed()

	require.True(t, h.Active())
	h.Cancel()
	before := calls
	clk.Advance(2 * time.Second)

	assert.Equal(t, before, calls)
	assert.Equal(t, shown, a.Displayed())
	assert.False(t, a.Running())
}

func TestNonPositiveDurationEmitsTarget(t *testing.T) {
	a, clk := newAnimator(t, 10*time.Millisecond)
	var values []float64
	a.Run(26, 0, func(v float64) { values = append(values, v) })
	clk.Advance(time.Second)
	assert.Equal(t, []float64{26}, values)
}

func TestNewRequiresClock(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilClock)
}
