// Package clock abstracts wall-clock time and backoff jitter so retry timing
// and log timestamps can be driven deterministically in tests.
package clock

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Clock provides the current time and timer channels.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Jitter returns a random duration in [0, max).
type Jitter func(max time.Duration) time.Duration

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time                         { return time.Now() }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RandomJitter draws uniformly from [0, max).
func RandomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// Fake is a manually advanced clock. After fires immediately and advances
// virtual time by d, recording every requested wait.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

// NewFake creates a fake clock starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.waits = append(f.waits, d)
	now := f.now
	f.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves virtual time forward without recording a wait.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Waits returns a copy of every duration passed to After.
func (f *Fake) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}

// TotalWait sums all recorded waits.
func (f *Fake) TotalWait() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	for _, w := range f.waits {
		total += w
	}
	return total
}

// FixedJitter returns a Jitter that always yields d (clamped below max).
func FixedJitter(d time.Duration) Jitter {
	return func(max time.Duration) time.Duration {
		if d >= max {
			return max - 1
		}
		return d
	}
}
