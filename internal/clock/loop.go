package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a real-time Clock backed by a single goroutine. Timer callbacks and
// posted tasks all run on that goroutine, one at a time.
type Loop struct {
	mu     sync.Mutex
	q      queue
	tasks  []func()
	closed bool

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	running   atomic.Bool
	closeOnce sync.Once
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f to run on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	l.mu.Lock()
	e := l.q.schedule(time.Now().Add(d), f)
	l.mu.Unlock()
	l.signal()
	return &timer{mu: &l.mu, q: &l.q, e: e}
}

// Post queues f to run on the loop as soon as possible. It reports false when
// the loop has been closed.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, f)
	l.mu.Unlock()
	l.signal()
	return true
}

// Do runs f on the loop and waits for it to finish. It reports false if the
// loop stopped before f ran. Do must not be called from the loop goroutine.
func (l *Loop) Do(f func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		f()
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Run processes tasks and timers until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer close(l.done)
	defer l.markClosed()

	wait := time.NewTimer(time.Hour)
	wait.Stop()
	defer wait.Stop()

	for {
		l.runTasks()
		l.runDue(time.Now())

		l.mu.Lock()
		next, ok := l.q.next()
		pendingTasks := len(l.tasks) > 0
		l.mu.Unlock()
		if pendingTasks {
			continue
		}

		var timerC <-chan time.Time
		if ok {
			d := time.Until(next)
			if d <= 0 {
				continue
			}
			wait.Reset(d)
			timerC = wait.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return nil
		case <-l.wake:
		case <-timerC:
		}
		wait.Stop()
	}
}

// Close stops the loop. Pending timers never fire.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.markClosed()
		close(l.quit)
	})
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) markClosed() {
	l.mu.Lock()
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) runTasks() {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()
	for _, task := range tasks {
		if l.isQuitting() {
			return
		}
		task()
	}
}

func (l *Loop) runDue(now time.Time) {
	for {
		if l.isQuitting() {
			return
		}
		l.mu.Lock()
		e := l.q.popDue(now)
		l.mu.Unlock()
		if e == nil {
			return
		}
		e.fn()
	}
}

func (l *Loop) isQuitting() bool {
	select {
	case <-l.quit:
		return true
	default:
		return false
	}
}
