package payment

import (
	"context"
	"sync"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

type OrderCreator interface {
	CreatePaymentOrder(ctx context.Context, holdGroupID string, guest domain.GuestInfo) (domain.PaymentOrder, error)
}

// Checkout is the opaque external payment UI. A launch resolves to exactly one
// outcome: success with a payment reference, failure with a reason, or a
// dismissal by the user.
type Checkout interface {
	Launch(ctx context.Context, order domain.PaymentOrder, prefill domain.GuestInfo) (domain.PaymentOutcome, error)
}

// Orchestrator creates payment orders against held reservations and drives the
// checkout to a single outcome. It initiates real money movement, so a second
// launch for an order that is already in flight is refused.
type Orchestrator struct {
	orders   OrderCreator
	checkout Checkout
	logger   observability.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(orders OrderCreator, checkout Checkout, logger observability.Logger) *Orchestrator {
	return &Orchestrator{
		orders:   orders,
		checkout: checkout,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// CreateOrder validates guest info locally and then creates a gateway order
// bound to the hold. Validation failures never reach the network.
func (o *Orchestrator) CreateOrder(ctx context.Context, holdGroupID string, guest domain.GuestInfo) (domain.PaymentOrder, error) {
	if err := guest.Validate(); err != nil {
		return domain.PaymentOrder{}, err
	}
	return o.orders.CreatePaymentOrder(ctx, holdGroupID, guest)
}

// Launch hands the order to the checkout UI and blocks until its one outcome.
func (o *Orchestrator) Launch(ctx context.Context, order domain.PaymentOrder, prefill domain.GuestInfo) (domain.PaymentOutcome, error) {
	o.mu.Lock()
	if o.inFlight[order.ID] {
		o.mu.Unlock()
		return domain.PaymentOutcome{}, domain.ErrOperationInFlight
	}
	o.inFlight[order.ID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, order.ID)
		o.mu.Unlock()
	}()

	outcome, err := o.checkout.Launch(ctx, order, prefill)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}
	observability.PaymentOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
	return outcome, nil
}
