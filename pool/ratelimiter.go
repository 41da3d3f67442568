package pool

import (
	"sync"
	"time"
)

// rateLimiter is a mutex-guarded sliding-window counter with a nowFn
// seam so tests can control window boundaries without real sleeps.
type rateLimiter struct {
	mu         sync.Mutex
	limit      int
	delta      time.Duration
	counter    int
	checkpoint time.Time
	waiting    []func()
	timer      *time.Timer
	nowFn      func() time.Time
}

func newRateLimiter(limit int, delta time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:      limit,
		delta:      delta,
		checkpoint: time.Now(),
		nowFn:      time.Now,
	}
}

// Allow reports whether a dispatch may proceed in the current window,
// rolling the window forward first if it has expired.
func (l *rateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	if l.counter >= l.limit {
		return false
	}
	l.counter++
	return true
}

// rollLocked resets the window once delta has elapsed since checkpoint
// and drains any callbacks queued by NotifyWhenAvailable in FIFO order.
// Must be called with l.mu held.
func (l *rateLimiter) rollLocked() {
	if l.nowFn().Sub(l.checkpoint) < l.delta {
		return
	}
	l.counter = 0
	l.checkpoint = l.nowFn()
	waiting := l.waiting
	l.waiting = nil
	if len(waiting) > 0 {
		go func() {
			for _, fn := range waiting {
				fn()
			}
		}()
	}
}

// NotifyWhenAvailable arms fn to run once the current window resets. Only
// one timer is ever pending; later calls just append to the waiting list.
func (l *rateLimiter) NotifyWhenAvailable(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waiting = append(l.waiting, fn)
	if l.timer != nil {
		return
	}
	remaining := l.delta - l.nowFn().Sub(l.checkpoint)
	if remaining < 0 {
		remaining = 0
	}
	l.timer = time.AfterFunc(remaining, func() {
		l.mu.Lock()
		l.timer = nil
		l.rollLocked()
		l.mu.Unlock()
	})
}
