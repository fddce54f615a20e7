package session

import (
	"context"
	"testing"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/catalog"
	"github.com/woodlands-thekkady/booking-flow/internal/clock"
	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/hold"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
	"github.com/woodlands-thekkady/booking-flow/internal/workflow"
)

type stubHoldAPI struct {
	cancelled []string
}

func (s *stubHoldAPI) CreateHold(ctx context.Context, lines []domain.HoldLine, checkIn, checkOut time.Time) (domain.Hold, error) {
	return domain.Hold{GroupID: "hg-1", ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

func (s *stubHoldAPI) CancelHold(ctx context.Context, holdGroupID string) error {
	s.cancelled = append(s.cancelled, holdGroupID)
	return nil
}

type stubAvailability struct{}

func (stubAvailability) Check(ctx context.Context, checkIn, checkOut time.Time, categoryID string) []domain.AvailabilitySnapshot {
	return []domain.AvailabilitySnapshot{{CategoryID: categoryID, AvailableUnits: 3}}
}

func testFactory(logger observability.Logger) Factory {
	return func(id string) *workflow.Controller {
		clk := clock.NewFixed(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		return workflow.NewController(id, workflow.Deps{
			Catalog: catalog.Catalog{
				Tier:       catalog.TierFallback,
				Categories: []domain.RoomCategory{{ID: "economy", UnitPrice: 650, PricingMode: domain.PerRoom, MaxOccupancy: 3}},
			},
			Availability: stubAvailability{},
			Holds:        hold.NewManager(&stubHoldAPI{}, logger),
			Expiry:       hold.NewExpiryClock(clk),
			Payments:     nil,
			Bookings:     nil,
			Logger:       logger,
			Clock:        clk,
		})
	}
}

func TestRegistry_CreateGetRemove(t *testing.T) {
	logger := observability.NewNopLogger()
	r := NewRegistry(testFactory(logger), 30*time.Minute, logger)

	id, ctrl := r.Create()
	if ctrl == nil || id == "" {
		t.Fatal("expected a session")
	}
	if got, ok := r.Get(id); !ok || got != ctrl {
		t.Fatal("lookup returned a different controller")
	}
	if _, ok := r.Get("nope"); ok {
		t.Fatal("unknown id resolved")
	}

	r.Remove(context.Background(), id)
	if _, ok := r.Get(id); ok {
		t.Fatal("removed session still resolvable")
	}
	if ctrl.Snapshot().State != workflow.StateCancelled {
		t.Fatal("removal must cancel the workflow")
	}
	r.Remove(context.Background(), id) // no-op
}

func TestRegistry_ReapsIdleSessions(t *testing.T) {
	logger := observability.NewNopLogger()
	r := NewRegistry(testFactory(logger), 20*time.Millisecond, logger, WithSweepInterval(5*time.Millisecond))

	id, ctrl := r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Len() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if r.Len() != 0 {
		t.Fatal("idle session was never reaped")
	}
	if _, ok := r.Get(id); ok {
		t.Fatal("reaped session still resolvable")
	}
	if ctrl.Snapshot().State != workflow.StateCancelled {
		t.Fatal("reaping must cancel the workflow")
	}
}

func TestRegistry_ActiveSessionsNotReaped(t *testing.T) {
	logger := observability.NewNopLogger()
	r := NewRegistry(testFactory(logger), time.Hour, logger, WithSweepInterval(5*time.Millisecond))

	id, _ := r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	if _, ok := r.Get(id); !ok {
		t.Fatal("fresh session was reaped")
	}
}
