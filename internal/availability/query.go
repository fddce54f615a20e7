package availability

import (
	"context"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

type Checker interface {
	Availability(ctx context.Context, checkIn, checkOut time.Time, categoryID string) ([]domain.AvailabilitySnapshot, error)
}

// Query wraps the backend availability endpoint with the semantics the
// workflow needs: a transport or server error and a sold-out answer look the
// same to callers. Either way there is nothing to hold.
type Query struct {
	checker Checker
	logger  observability.Logger
}

func New(checker Checker, logger observability.Logger) *Query {
	return &Query{checker: checker, logger: logger}
}

// Check returns availability snapshots for the date range. When categoryID is
// set and the backend omits that category from its response, a zero-unit
// snapshot is synthesized: the backend has been observed to silently skip
// categories it considers exhausted, and callers must read that as sold out,
// not as an error. (Possibly a backend bug rather than intended behavior;
// preserved here because the workflow depends on it.)
func (q *Query) Check(ctx context.Context, checkIn, checkOut time.Time, categoryID string) []domain.AvailabilitySnapshot {
	snaps, err := q.checker.Availability(ctx, checkIn, checkOut, categoryID)
	if err != nil {
		q.logger.WithField("error", err.Error()).Warn("availability check failed, treating as no availability")
		return nil
	}

	if categoryID != "" && !containsCategory(snaps, categoryID) {
		snaps = append(snaps, domain.AvailabilitySnapshot{CategoryID: categoryID, AvailableUnits: 0})
	}
	return snaps
}

func containsCategory(snaps []domain.AvailabilitySnapshot, categoryID string) bool {
	for _, s := range snaps {
		if s.CategoryID == categoryID {
			return true
		}
	}
	return false
}
