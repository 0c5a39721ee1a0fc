// Package clock provides the scheduling primitive the page timing components run on.
//
// Every Clock delivers its callbacks one at a time, never concurrently, so the
// components built on it can keep their state without locks as long as their
// owners also call them from the clock's delivery context (Loop.Do, or the test
// goroutine for Manual).
package clock

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

// ErrLoopRunning is returned by Run when the loop is already running.
var ErrLoopRunning = errors.New("loop already running")

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented it from
	// firing.
	Stop() bool
}

// Clock provides the current time and delayed callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type entry struct {
	at    time.Time
	seq   uint64
	fn    func()
	index int
}

// queue orders pending callbacks by deadline, then by scheduling order.
type queue struct {
	items []*entry
	seq   uint64
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.at.Equal(b.at) {
		return a.seq < b.seq
	}
	return a.at.Before(b.at)
}

func (q *queue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(q.items)
	q.items = append(q.items, e)
}

func (q *queue) Pop() any {
	old := q.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	q.items = old[:n-1]
	return e
}

func (q *queue) schedule(at time.Time, fn func()) *entry {
	q.seq++
	e := &entry{at: at, seq: q.seq, fn: fn}
	heap.Push(q, e)
	return e
}

// popDue removes and returns the earliest entry due at or before now.
func (q *queue) popDue(now time.Time) *entry {
	if len(q.items) == 0 || q.items[0].at.After(now) {
		return nil
	}
	return heap.Pop(q).(*entry)
}

func (q *queue) next() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}

type timer struct {
	mu *sync.Mutex
	q  *queue
	e  *entry
}

func (t *timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.e.index < 0 {
		return false
	}
	heap.Remove(t.q, t.e.index)
	return true
}
