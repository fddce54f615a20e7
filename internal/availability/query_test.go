package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

type fakeChecker struct {
	snaps []domain.AvailabilitySnapshot
	err   error
}

func (f fakeChecker) Availability(ctx context.Context, in, out time.Time, categoryID string) ([]domain.AvailabilitySnapshot, error) {
	return f.snaps, f.err
}

func TestQuery_ErrorLooksLikeSoldOut(t *testing.T) {
	q := New(fakeChecker{err: errors.New("upstream down")}, observability.NewNopLogger())

	snaps := q.Check(context.Background(), time.Now(), time.Now().Add(24*time.Hour), "")
	if len(snaps) != 0 {
		t.Fatalf("expected empty result on error, got %+v", snaps)
	}
}

func TestQuery_MissingCategoryBecomesZeroUnits(t *testing.T) {
	q := New(fakeChecker{snaps: []domain.AvailabilitySnapshot{
		{CategoryID: "primeDeluxe", AvailableUnits: 2, UnitPrice: 1000},
	}}, observability.NewNopLogger())

	snaps := q.Check(context.Background(), time.Now(), time.Now().Add(24*time.Hour), "fiveBedded")
	var found *domain.AvailabilitySnapshot
	for i := range snaps {
		if snaps[i].CategoryID == "fiveBedded" {
			found = &snaps[i]
		}
	}
	if found == nil {
		t.Fatal("expected synthesized snapshot for omitted category")
	}
	if found.AvailableUnits != 0 {
		t.Fatalf("expected 0 units, got %d", found.AvailableUnits)
	}
}

func TestQuery_PresentCategoryPassesThrough(t *testing.T) {
	q := New(fakeChecker{snaps: []domain.AvailabilitySnapshot{
		{CategoryID: "economy", AvailableUnits: 5, UnitPrice: 650},
	}}, observability.NewNopLogger())

	snaps := q.Check(context.Background(), time.Now(), time.Now().Add(24*time.Hour), "economy")
	if len(snaps) != 1 || snaps[0].AvailableUnits != 5 {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
}
