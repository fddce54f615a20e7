package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

type ConfirmAPI interface {
	ConfirmBooking(ctx context.Context, holdGroupID, paymentRef string) ([]string, error)
}

// IdempotencyStore remembers confirm responses keyed by hold and payment
// reference. A miss is (nil, nil).
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Confirmer exchanges a paid hold for permanent booking records. Money has
// already moved by the time this runs, so a confirm retried after a transport
// error must return the original booking ids instead of posting again; the
// idempotency store carries that memory across retries.
type Confirmer struct {
	api    ConfirmAPI
	store  IdempotencyStore
	ttl    time.Duration
	logger observability.Logger
}

func NewConfirmer(api ConfirmAPI, store IdempotencyStore, logger observability.Logger) *Confirmer {
	return &Confirmer{api: api, store: store, ttl: 24 * time.Hour, logger: logger}
}

func (c *Confirmer) Confirm(ctx context.Context, holdGroupID, paymentRef string, totalAmount int64) (domain.BookingResult, error) {
	key := "confirm:" + holdGroupID + ":" + paymentRef

	if c.store != nil {
		if cached, err := c.store.Get(ctx, key); err != nil {
			c.logger.WithField("error", err.Error()).Warn("idempotency lookup failed")
		} else if cached != nil {
			var ids []string
			if err := json.Unmarshal(cached, &ids); err == nil && len(ids) > 0 {
				return domain.BookingResult{BookingIDs: ids, TotalAmount: totalAmount}, nil
			}
		}
	}

	ids, err := c.api.ConfirmBooking(ctx, holdGroupID, paymentRef)
	if err != nil {
		return domain.BookingResult{}, &domain.ConfirmationError{
			HoldGroupID: holdGroupID,
			PaymentRef:  paymentRef,
			Cause:       err,
		}
	}

	if c.store != nil {
		if data, err := json.Marshal(ids); err == nil {
			if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
				c.logger.WithField("error", err.Error()).Warn("idempotency store failed")
			}
		}
	}

	return domain.BookingResult{BookingIDs: ids, TotalAmount: totalAmount}, nil
}
