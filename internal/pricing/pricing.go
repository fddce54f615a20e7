package pricing

import (
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
)

// Nights counts billable nights between check-in and check-out, rounding any
// partial day up. Non-positive ranges count as zero.
func Nights(checkIn, checkOut time.Time) int {
	return domain.StayRequest{CheckIn: checkIn, CheckOut: checkOut}.Nights()
}

// Total computes the stay price in rupees. PerHead categories multiply by
// guest count, PerRoom by unit count. Pure: the same inputs always produce the
// same amount, so the displayed total and the eventual order amount agree.
func Total(checkIn, checkOut time.Time, cat domain.RoomCategory, unitCount, guestCount int) int64 {
	nights := Nights(checkIn, checkOut)
	if nights <= 0 {
		return 0
	}
	if cat.PricingMode == domain.PerHead {
		return int64(nights) * cat.UnitPrice * int64(guestCount)
	}
	return int64(nights) * cat.UnitPrice * int64(unitCount)
}

// TotalMinor is Total expressed in minor currency units (paise), the unit the
// payment order is denominated in.
func TotalMinor(checkIn, checkOut time.Time, cat domain.RoomCategory, unitCount, guestCount int) int64 {
	return Total(checkIn, checkOut, cat, unitCount, guestCount) * 100
}
