package domain

import "time"

type HoldLine struct {
	CategoryID string
	UnitCount  int
}

// Hold is the perishable reservation the backend granted us. The backend owns
// exclusivity; this side only tracks identity and expiry for one booking attempt.
type Hold struct {
	GroupID   string
	ExpiresAt time.Time
	Lines     []HoldLine
	CheckIn   time.Time
	CheckOut  time.Time
}

func (h Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
