package payment

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
)

// CallbackCheckout bridges the asynchronous gateway UI into a blocking Launch.
// The gateway reports back through exactly one of three callbacks (success,
// failure, dismissal); whichever arrives first at Resolve wins and the rest
// are dropped, so a launch can never observe two outcomes.
type CallbackCheckout struct {
	mu      sync.Mutex
	pending map[string]chan domain.PaymentOutcome
}

func NewCallbackCheckout() *CallbackCheckout {
	return &CallbackCheckout{pending: make(map[string]chan domain.PaymentOutcome)}
}

func (c *CallbackCheckout) Launch(ctx context.Context, order domain.PaymentOrder, prefill domain.GuestInfo) (domain.PaymentOutcome, error) {
	c.mu.Lock()
	if _, exists := c.pending[order.ID]; exists {
		c.mu.Unlock()
		return domain.PaymentOutcome{}, domain.ErrOperationInFlight
	}
	ch := make(chan domain.PaymentOutcome, 1)
	c.pending[order.ID] = ch
	c.mu.Unlock()

	select {
	case outcome := <-ch:
		return outcome, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, order.ID)
		c.mu.Unlock()
		return domain.PaymentOutcome{}, errors.Wrap(ctx.Err(), "checkout abandoned")
	}
}

// Resolve delivers the gateway's callback for an order. Returns false when the
// order has no pending launch, either because it was already resolved or the
// launch was abandoned; such late reports are discarded.
func (c *CallbackCheckout) Resolve(orderID string, outcome domain.PaymentOutcome) bool {
	c.mu.Lock()
	ch, ok := c.pending[orderID]
	if ok {
		delete(c.pending, orderID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- outcome
	return true
}
