package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

type fakeOrders struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOrders) CreatePaymentOrder(ctx context.Context, holdGroupID string, guest domain.GuestInfo) (domain.PaymentOrder, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return domain.PaymentOrder{}, f.err
	}
	return domain.PaymentOrder{ID: "order-1", Amount: 390000, Currency: "INR", HoldGroupID: holdGroupID}, nil
}

type stubCheckout struct {
	outcome domain.PaymentOutcome
}

func (s stubCheckout) Launch(ctx context.Context, order domain.PaymentOrder, prefill domain.GuestInfo) (domain.PaymentOutcome, error) {
	return s.outcome, nil
}

func validGuest() domain.GuestInfo {
	return domain.GuestInfo{Name: "Meera Nair", Email: "meera@example.com", Phone: "9447021958"}
}

func TestCreateOrder_ValidationNeverReachesNetwork(t *testing.T) {
	orders := &fakeOrders{}
	o := NewOrchestrator(orders, stubCheckout{}, observability.NewNopLogger())

	bad := []domain.GuestInfo{
		{Name: "", Email: "a@b.com", Phone: "1234567890"},
		{Name: "X", Email: "not-an-email", Phone: "1234567890"},
		{Name: "X", Email: "a@b.com", Phone: "12345"},
		{Name: "X", Email: "a@b.com", Phone: "12345678ab"},
	}
	for _, g := range bad {
		if _, err := o.CreateOrder(context.Background(), "hg-1", g); !errors.Is(err, domain.ErrInvalidGuestInfo) {
			t.Fatalf("expected ErrInvalidGuestInfo for %+v, got %v", g, err)
		}
	}
	if orders.calls != 0 {
		t.Fatalf("validation failures must not reach the network, got %d calls", orders.calls)
	}
}

func TestCreateOrder_Valid(t *testing.T) {
	orders := &fakeOrders{}
	o := NewOrchestrator(orders, stubCheckout{}, observability.NewNopLogger())

	order, err := o.CreateOrder(context.Background(), "hg-1", validGuest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.ID != "order-1" || order.HoldGroupID != "hg-1" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestLaunch_RefusesConcurrentLaunchForSameOrder(t *testing.T) {
	checkout := NewCallbackCheckout()
	o := NewOrchestrator(&fakeOrders{}, checkout, observability.NewNopLogger())
	order := domain.PaymentOrder{ID: "order-1", Amount: 100000}

	results := make(chan error, 1)
	go func() {
		_, err := o.Launch(context.Background(), order, validGuest())
		results <- err
	}()

	// Wait for the first launch to register as pending.
	deadline := time.Now().Add(time.Second)
	for {
		checkout.mu.Lock()
		_, pending := checkout.pending[order.ID]
		checkout.mu.Unlock()
		if pending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first launch never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := o.Launch(context.Background(), order, validGuest()); !errors.Is(err, domain.ErrOperationInFlight) {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}

	checkout.Resolve(order.ID, domain.PaymentOutcome{Kind: domain.OutcomeSuccess, PaymentRef: "pay_1"})
	if err := <-results; err != nil {
		t.Fatalf("first launch failed: %v", err)
	}
}

func TestCallbackCheckout_FirstOutcomeWins(t *testing.T) {
	checkout := NewCallbackCheckout()
	order := domain.PaymentOrder{ID: "order-9"}

	got := make(chan domain.PaymentOutcome, 1)
	go func() {
		outcome, err := checkout.Launch(context.Background(), order, domain.GuestInfo{})
		if err != nil {
			t.Error(err)
			return
		}
		got <- outcome
	}()

	deadline := time.Now().Add(time.Second)
	for {
		checkout.mu.Lock()
		_, pending := checkout.pending[order.ID]
		checkout.mu.Unlock()
		if pending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("launch never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	// A failure callback and a dismissal callback race; only the first lands.
	if ok := checkout.Resolve(order.ID, domain.PaymentOutcome{Kind: domain.OutcomeFailure, Reason: "card declined"}); !ok {
		t.Fatal("first resolve should land")
	}
	if ok := checkout.Resolve(order.ID, domain.PaymentOutcome{Kind: domain.OutcomeUserCancelled}); ok {
		t.Fatal("second resolve must be dropped")
	}

	outcome := <-got
	if outcome.Kind != domain.OutcomeFailure || outcome.Reason != "card declined" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestCallbackCheckout_AbandonedLaunchDropsLateCallback(t *testing.T) {
	checkout := NewCallbackCheckout()
	order := domain.PaymentOrder{ID: "order-5"}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := checkout.Launch(ctx, order, domain.GuestInfo{})
		errCh <- err
	}()

	deadline := time.Now().Add(time.Second)
	for {
		checkout.mu.Lock()
		_, pending := checkout.pending[order.ID]
		checkout.mu.Unlock()
		if pending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("launch never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-errCh; err == nil {
		t.Fatal("expected error for abandoned launch")
	}
	if ok := checkout.Resolve(order.ID, domain.PaymentOutcome{Kind: domain.OutcomeSuccess, PaymentRef: "late"}); ok {
		t.Fatal("late callback after abandonment must be discarded")
	}
}
