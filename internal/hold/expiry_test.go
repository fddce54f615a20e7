package hold

import (
	"testing"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/clock"
)

func TestExpiryClock_FiresAtDeadline(t *testing.T) {
	e := NewExpiryClock(clock.NewSystem(), WithTickInterval(5*time.Millisecond))
	cd := e.Arm(time.Now().Add(30 * time.Millisecond))
	defer cd.Stop()

	select {
	case <-cd.Expired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}
}

func TestExpiryClock_PastDeadlineFiresImmediately(t *testing.T) {
	e := NewExpiryClock(clock.NewSystem(), WithTickInterval(5*time.Millisecond))
	cd := e.Arm(time.Now().Add(-time.Second))
	defer cd.Stop()

	select {
	case <-cd.Expired:
	case <-time.After(time.Second):
		t.Fatal("expected immediate expiry for past deadline")
	}
}

func TestExpiryClock_StopPreventsExpiry(t *testing.T) {
	e := NewExpiryClock(clock.NewSystem(), WithTickInterval(5*time.Millisecond))
	cd := e.Arm(time.Now().Add(40 * time.Millisecond))
	cd.Stop()

	select {
	case <-cd.Expired:
		t.Fatal("stopped countdown must not expire")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExpiryClock_RearmRetiresPrevious(t *testing.T) {
	e := NewExpiryClock(clock.NewSystem(), WithTickInterval(5*time.Millisecond))
	first := e.Arm(time.Now().Add(30 * time.Millisecond))
	second := e.Arm(time.Now().Add(60 * time.Millisecond))
	defer second.Stop()

	select {
	case <-first.Expired:
		t.Fatal("retired countdown must not expire")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-second.Expired:
	case <-time.After(time.Second):
		t.Fatal("replacement countdown never expired")
	}
}

func TestExpiryClock_RemainingTicks(t *testing.T) {
	e := NewExpiryClock(clock.NewSystem(), WithTickInterval(5*time.Millisecond))
	cd := e.Arm(time.Now().Add(500 * time.Millisecond))
	defer cd.Stop()

	select {
	case rem := <-cd.Remaining:
		if rem <= 0 || rem > 500*time.Millisecond {
			t.Fatalf("unexpected remaining %v", rem)
		}
	case <-time.After(time.Second):
		t.Fatal("no remaining tick received")
	}
}

func TestExpiryClock_DisarmIsSafeWithoutArm(t *testing.T) {
	e := NewExpiryClock(clock.NewSystem())
	e.Disarm()
}
