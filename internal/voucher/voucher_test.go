package voucher

import (
	"strings"
	"testing"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
)

func TestRender(t *testing.T) {
	v := Voucher{
		Guest: domain.GuestInfo{Name: "Meera Nair", Email: "meera@example.com", Phone: "9447021958"},
		Stay: domain.StayRequest{
			CheckIn:    time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			CheckOut:   time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC),
			CategoryID: "economy",
			UnitCount:  2,
			GuestCount: 4,
		},
		Category: domain.RoomCategory{ID: "economy", DisplayName: "Economy Room", PricingMode: domain.PerRoom},
		Result:   domain.BookingResult{BookingIDs: []string{"bk-1", "bk-2"}, TotalAmount: 3900},
		IssuedAt: time.Date(2025, 6, 13, 9, 0, 0, 0, time.UTC),
	}

	out, err := Render(v)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	for _, want := range []string{
		"Meera Nair",
		"Economy Room",
		"10 Jun 2025",
		"13 Jun 2025",
		"Nights:   3",
		"Rooms:    2",
		"Booking references: bk-1, bk-2",
		"INR 3900",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("voucher missing %q:\n%s", want, text)
		}
	}
}

func TestRender_PerHeadShowsGuests(t *testing.T) {
	v := Voucher{
		Guest: domain.GuestInfo{Name: "X", Email: "x@y.com", Phone: "1234567890"},
		Stay: domain.StayRequest{
			CheckIn:    time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			CheckOut:   time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
			CategoryID: "dormitory",
			UnitCount:  5,
			GuestCount: 5,
		},
		Category: domain.RoomCategory{ID: "dormitory", DisplayName: "Dormitory", PricingMode: domain.PerHead},
		Result:   domain.BookingResult{BookingIDs: []string{"bk-9"}, TotalAmount: 1250},
		IssuedAt: time.Now(),
	}

	out, err := Render(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "Guests:   5") {
		t.Fatalf("per-head voucher should show guest count:\n%s", out)
	}
	if !strings.Contains(string(out), "Booking reference: bk-9") {
		t.Fatalf("single booking should not pluralize:\n%s", out)
	}
}

func TestRender_RequiresBooking(t *testing.T) {
	if _, err := Render(Voucher{}); err == nil {
		t.Fatal("expected error for voucher without booking ids")
	}
}
