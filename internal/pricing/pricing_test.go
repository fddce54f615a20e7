package pricing

import (
	"testing"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTotal_PerRoom(t *testing.T) {
	// economy, 3 nights, 2 rooms
	cat := domain.RoomCategory{ID: "economy", UnitPrice: 650, PricingMode: domain.PerRoom}
	got := Total(date(2024, 1, 10), date(2024, 1, 13), cat, 2, 4)
	if got != 3900 {
		t.Fatalf("expected 3900, got %d", got)
	}
}

func TestTotal_PerHead(t *testing.T) {
	// dormitory, 1 night, 5 guests
	cat := domain.RoomCategory{ID: "dormitory", UnitPrice: 250, PricingMode: domain.PerHead}
	got := Total(date(2024, 3, 1), date(2024, 3, 2), cat, 1, 5)
	if got != 1250 {
		t.Fatalf("expected 1250, got %d", got)
	}
}

func TestTotal_Deterministic(t *testing.T) {
	cat := domain.RoomCategory{ID: "dormitory", UnitPrice: 250, PricingMode: domain.PerHead}
	in, out := date(2024, 5, 1), date(2024, 5, 4)
	first := Total(in, out, cat, 1, 4)
	if first != 3000 {
		t.Fatalf("expected 3000, got %d", first)
	}
	for i := 0; i < 10; i++ {
		if again := Total(in, out, cat, 1, 4); again != first {
			t.Fatalf("expected stable output %d, got %d", first, again)
		}
	}
}

func TestTotal_InvalidRangeIsZero(t *testing.T) {
	cat := domain.RoomCategory{ID: "economy", UnitPrice: 650, PricingMode: domain.PerRoom}
	if got := Total(date(2024, 1, 13), date(2024, 1, 10), cat, 2, 2); got != 0 {
		t.Fatalf("expected 0 for inverted range, got %d", got)
	}
	if got := Total(date(2024, 1, 10), date(2024, 1, 10), cat, 2, 2); got != 0 {
		t.Fatalf("expected 0 for zero-night range, got %d", got)
	}
}

func TestTotalMinor(t *testing.T) {
	cat := domain.RoomCategory{ID: "primeDeluxe", UnitPrice: 1000, PricingMode: domain.PerRoom}
	if got := TotalMinor(date(2024, 2, 1), date(2024, 2, 3), cat, 2, 4); got != 400000 {
		t.Fatalf("expected 400000 paise, got %d", got)
	}
}
