package domain

import (
	"math"
	"time"
)

// StayRequest is the shape of reservation the guest is asking for.
// UnitCount means rooms for PerRoom categories and persons for PerHead ones.
type StayRequest struct {
	CheckIn    time.Time
	CheckOut   time.Time
	CategoryID string
	UnitCount  int
	GuestCount int
}

func (s StayRequest) Nights() int {
	n := int(math.Ceil(s.CheckOut.Sub(s.CheckIn).Hours() / 24))
	if n < 0 {
		return 0
	}
	return n
}

// Validate checks the request against a resolved category. now is the
// reference instant for the not-in-the-past rule.
func (s StayRequest) Validate(cat RoomCategory, now time.Time) error {
	if s.CategoryID == "" || s.CategoryID != cat.ID {
		return ErrInvalidInput
	}
	if !s.CheckOut.After(s.CheckIn) {
		return ErrInvalidInput
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if s.CheckIn.Before(today) {
		return ErrInvalidInput
	}
	if s.UnitCount < 1 || s.GuestCount < 1 {
		return ErrInvalidInput
	}
	if cat.PricingMode == PerRoom && s.GuestCount > cat.MaxOccupancy*s.UnitCount {
		return ErrInvalidInput
	}
	return nil
}
