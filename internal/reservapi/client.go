package reservapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

// DateLayout is the wire format for check-in/check-out dates.
const DateLayout = "2006-01-02"

// Client talks to the external reservation backend. All calls go through one
// circuit breaker; no automatic retries, callers decide what is retryable.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  observability.Logger
}

func New(baseURL string, timeout time.Duration, logger observability.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reservation-api",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			observability.CircuitBreakerState.WithLabelValues(name).Set(state)
			logger.WithField("circuit", name).WithField("from", from.String()).WithField("to", to.String()).Info("circuit breaker state changed")
		},
	})

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json"),
		breaker: breaker,
		logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, endpoint string, fn func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	tracer := otel.Tracer("reservapi")
	ctx, span := tracer.Start(ctx, endpoint)
	defer span.End()

	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	observability.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return res.(*resty.Response), nil
}

type categoryDTO struct {
	Type        string `json:"type"`
	MaxCapacity int    `json:"max_capacity"`
	Price       int64  `json:"default_price"`
	PricingMode string `json:"pricing_mode"`
}

// Categories fetches the room catalog.
func (c *Client) Categories(ctx context.Context) ([]domain.RoomCategory, error) {
	resp, err := c.do(ctx, "categories", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).Get("/categories")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Newf("categories: unexpected status %d", resp.StatusCode())
	}

	var dtos []categoryDTO
	if err := decodeEnvelope(resp.Body(), &dtos); err != nil {
		return nil, err
	}

	cats := make([]domain.RoomCategory, 0, len(dtos))
	for _, d := range dtos {
		cats = append(cats, domain.RoomCategory{
			ID:           d.Type,
			UnitPrice:    d.Price,
			PricingMode:  domain.PricingMode(d.PricingMode),
			MaxOccupancy: d.MaxCapacity,
		})
	}
	return cats, nil
}

type availabilityDTO struct {
	Type           string `json:"type"`
	AvailableUnits int    `json:"available_units"`
	UnitPrice      int64  `json:"unit_price"`
}

// Availability queries free inventory for a date range, optionally narrowed to
// one category.
func (c *Client) Availability(ctx context.Context, checkIn, checkOut time.Time, categoryID string) ([]domain.AvailabilitySnapshot, error) {
	resp, err := c.do(ctx, "availability", func(ctx context.Context) (*resty.Response, error) {
		r := c.http.R().SetContext(ctx).
			SetQueryParam("checkIn", checkIn.Format(DateLayout)).
			SetQueryParam("checkOut", checkOut.Format(DateLayout))
		if categoryID != "" {
			r.SetQueryParam("type", categoryID)
		}
		return r.Get("/reservations/availability")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Newf("availability: unexpected status %d", resp.StatusCode())
	}

	var dtos []availabilityDTO
	if err := decodeEnvelope(resp.Body(), &dtos); err != nil {
		return nil, err
	}

	snaps := make([]domain.AvailabilitySnapshot, 0, len(dtos))
	for _, d := range dtos {
		snaps = append(snaps, domain.AvailabilitySnapshot{
			CategoryID:     d.Type,
			AvailableUnits: d.AvailableUnits,
			UnitPrice:      d.UnitPrice,
		})
	}
	return snaps, nil
}

type roomRequestDTO struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type holdRequestDTO struct {
	RoomRequests []roomRequestDTO `json:"roomRequests"`
	CheckIn      string           `json:"checkIn"`
	CheckOut     string           `json:"checkOut"`
}

type holdResponseDTO struct {
	HoldGroupID string `json:"hold_group_id"`
	ExpiresAt   string `json:"expires_at"`
}

// CreateHold asks the backend to hold the requested lines. A conflict answer
// (the lines raced against another booking) comes back as ErrHoldUnavailable.
func (c *Client) CreateHold(ctx context.Context, lines []domain.HoldLine, checkIn, checkOut time.Time) (domain.Hold, error) {
	body := holdRequestDTO{
		CheckIn:  checkIn.Format(DateLayout),
		CheckOut: checkOut.Format(DateLayout),
	}
	for _, l := range lines {
		body.RoomRequests = append(body.RoomRequests, roomRequestDTO{Category: l.CategoryID, Count: l.UnitCount})
	}

	resp, err := c.do(ctx, "hold", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).SetBody(body).Post("/reservations/hold")
	})
	if err != nil {
		return domain.Hold{}, err
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.Hold{}, domain.ErrHoldUnavailable
	default:
		return domain.Hold{}, errors.Newf("hold: unexpected status %d", resp.StatusCode())
	}

	var dto holdResponseDTO
	if err := decodeEnvelope(resp.Body(), &dto); err != nil {
		return domain.Hold{}, err
	}
	if dto.HoldGroupID == "" {
		return domain.Hold{}, errors.Wrap(domain.ErrSchemaMismatch, "hold response missing hold_group_id")
	}
	expiresAt, err := time.Parse(time.RFC3339, dto.ExpiresAt)
	if err != nil {
		return domain.Hold{}, errors.Wrap(domain.ErrSchemaMismatch, "hold response has unparseable expires_at")
	}

	return domain.Hold{
		GroupID:   dto.HoldGroupID,
		ExpiresAt: expiresAt,
		Lines:     lines,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
	}, nil
}

// CancelHold releases a hold. Cancelling an expired or already-cancelled hold
// is not an error; the backend answers those with 404/410 and we fold that in.
func (c *Client) CancelHold(ctx context.Context, holdGroupID string) error {
	resp, err := c.do(ctx, "cancel-hold", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).
			SetBody(map[string]string{"holdGroupId": holdGroupID}).
			Delete("/reservations/cancel-hold")
	})
	if err != nil {
		return err
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		return nil
	}
	return errors.Newf("cancel-hold: unexpected status %d", resp.StatusCode())
}

type orderRequestDTO struct {
	HoldGroupID      string `json:"holdGroupId"`
	GuestName        string `json:"guest_name"`
	GuestEmail       string `json:"guest_email"`
	GuestPhoneNumber string `json:"guest_phone_number"`
}

type orderResponseDTO struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Notes    string `json:"notes"`
}

// CreatePaymentOrder creates a gateway order bound to a held reservation.
// Amount in the response is in minor currency units.
func (c *Client) CreatePaymentOrder(ctx context.Context, holdGroupID string, guest domain.GuestInfo) (domain.PaymentOrder, error) {
	body := orderRequestDTO{
		HoldGroupID:      holdGroupID,
		GuestName:        guest.Name,
		GuestEmail:       guest.Email,
		GuestPhoneNumber: guest.Phone,
	}

	resp, err := c.do(ctx, "payment-order", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).SetBody(body).Post("/reservations/payment/order")
	})
	if err != nil {
		return domain.PaymentOrder{}, err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return domain.PaymentOrder{}, errors.Newf("payment-order: unexpected status %d", resp.StatusCode())
	}

	var dto orderResponseDTO
	if err := decodeEnvelope(resp.Body(), &dto); err != nil {
		return domain.PaymentOrder{}, err
	}
	if dto.ID == "" || dto.Amount <= 0 {
		return domain.PaymentOrder{}, errors.Wrap(domain.ErrSchemaMismatch, "order response missing id or amount")
	}

	return domain.PaymentOrder{
		ID:          dto.ID,
		Amount:      dto.Amount,
		Currency:    dto.Currency,
		HoldGroupID: holdGroupID,
		Notes:       dto.Notes,
	}, nil
}

type confirmRequestDTO struct {
	HoldGroupID       string `json:"holdGroupId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
}

type confirmResponseDTO struct {
	BookingIDs []string `json:"bookingIds"`
}

// ConfirmBooking converts a paid hold into permanent booking records.
func (c *Client) ConfirmBooking(ctx context.Context, holdGroupID, paymentRef string) ([]string, error) {
	body := confirmRequestDTO{HoldGroupID: holdGroupID, RazorpayPaymentID: paymentRef}

	resp, err := c.do(ctx, "confirm", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).SetBody(body).Post("/reservations/booking/confirm")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, errors.Newf("confirm: unexpected status %d", resp.StatusCode())
	}

	var dto confirmResponseDTO
	if err := decodeEnvelope(resp.Body(), &dto); err != nil {
		return nil, err
	}
	if len(dto.BookingIDs) == 0 {
		return nil, errors.Wrap(domain.ErrSchemaMismatch, "confirm response has no booking ids")
	}
	return dto.BookingIDs, nil
}
