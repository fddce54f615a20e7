package hold

import (
	"sync"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/clock"
)

// Countdown is one armed timer bound to one hold. Remaining carries the time
// left at roughly the tick interval; Expired closes exactly once when the
// deadline passes. Stop disarms and waits for the timer goroutine to exit, so
// no timer outlives its hold.
type Countdown struct {
	Remaining <-chan time.Duration
	Expired   <-chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// ExpiryClock arms countdowns against hold deadlines. Re-arming fully retires
// the previous countdown before the new one starts; two timers are never live
// at once for the same clock.
type ExpiryClock struct {
	clk      clock.Clock
	interval time.Duration

	mu      sync.Mutex
	current *Countdown
}

type ExpiryClockOption func(*ExpiryClock)

// WithTickInterval overrides the 1s countdown granularity (tests).
func WithTickInterval(d time.Duration) ExpiryClockOption {
	return func(e *ExpiryClock) {
		if d > 0 {
			e.interval = d
		}
	}
}

func NewExpiryClock(clk clock.Clock, opts ...ExpiryClockOption) *ExpiryClock {
	e := &ExpiryClock{clk: clk, interval: time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ExpiryClock) Arm(expiresAt time.Time) *Countdown {
	e.mu.Lock()
	prev := e.current
	e.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	remaining := make(chan time.Duration, 1)
	expired := make(chan struct{})
	cd := &Countdown{
		Remaining: remaining,
		Expired:   expired,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	e.mu.Lock()
	e.current = cd
	e.mu.Unlock()

	go e.run(cd, expiresAt, remaining, expired)
	return cd
}

// Disarm stops the current countdown, if any, without firing Expired.
func (e *ExpiryClock) Disarm() {
	e.mu.Lock()
	cd := e.current
	e.current = nil
	e.mu.Unlock()
	if cd != nil {
		cd.Stop()
	}
}

func (e *ExpiryClock) run(cd *Countdown, expiresAt time.Time, remaining chan<- time.Duration, expired chan struct{}) {
	defer close(cd.done)

	// Remaining time is recomputed from the wall clock on every tick rather
	// than decremented, so a suspended process does not drift the deadline.
	if !expiresAt.After(e.clk.Now()) {
		close(expired)
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-ticker.C:
			rem := expiresAt.Sub(e.clk.Now())
			if rem <= 0 {
				close(expired)
				return
			}
			select {
			case remaining <- rem:
			default:
			}
		}
	}
}
