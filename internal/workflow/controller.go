package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/woodlands-thekkady/booking-flow/internal/catalog"
	"github.com/woodlands-thekkady/booking-flow/internal/clock"
	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/hold"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
	"github.com/woodlands-thekkady/booking-flow/internal/pricing"
)

// State is the single externally observable position of one booking attempt.
type State string

const (
	StateIdle                State = "idle"
	StateAvailabilityChecked State = "availability_checked"
	StateHeld                State = "held"
	StateGuestInfoCollected  State = "guest_info_collected"
	StatePaymentInFlight     State = "payment_in_flight"
	StateConfirmed           State = "confirmed"
	StateConfirmationFailed  State = "confirmation_failed"
	StateExpired             State = "expired"
	StateCancelled           State = "cancelled"
)

// Terminal reports whether no further transition can leave the state.
// A payment failure is not terminal: the hold survives and the guest retries.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateConfirmationFailed, StateExpired, StateCancelled:
		return true
	}
	return false
}

const (
	actionHold    = "hold"
	actionPayment = "payment"
)

type AvailabilitySource interface {
	Check(ctx context.Context, checkIn, checkOut time.Time, categoryID string) []domain.AvailabilitySnapshot
}

type HoldStore interface {
	Request(ctx context.Context, lines []domain.HoldLine, checkIn, checkOut time.Time) (domain.Hold, error)
	Cancel(ctx context.Context)
	Drop()
	Consume()
}

type ExpiryTimer interface {
	Arm(expiresAt time.Time) *hold.Countdown
	Disarm()
}

type PaymentService interface {
	CreateOrder(ctx context.Context, holdGroupID string, guest domain.GuestInfo) (domain.PaymentOrder, error)
	Launch(ctx context.Context, order domain.PaymentOrder, prefill domain.GuestInfo) (domain.PaymentOutcome, error)
}

type BookingService interface {
	Confirm(ctx context.Context, holdGroupID, paymentRef string, totalAmount int64) (domain.BookingResult, error)
}

// TransitionRecorder persists state transitions for later support conversations.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, sessionID, from, to string, data map[string]interface{}) error
}

// EventPublisher fans booking facts out to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

// ReconciliationSink durably records paid-but-unconfirmed sessions.
type ReconciliationSink interface {
	RecordFailure(ctx context.Context, sessionID, holdGroupID, paymentRef, guestName, guestEmail, guestPhone string, amountMinor int64, cause string) error
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(context.Context, string, string, string, map[string]interface{}) error {
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

type nopSink struct{}

func (nopSink) RecordFailure(context.Context, string, string, string, string, string, string, int64, string) error {
	return nil
}

// Deps carries the collaborators one controller is built from. Audit, Events
// and Journal are optional; nil means no-op.
type Deps struct {
	Catalog      catalog.Catalog
	Availability AvailabilitySource
	Holds        HoldStore
	Expiry       ExpiryTimer
	Payments     PaymentService
	Bookings     BookingService
	Logger       observability.Logger
	Clock        clock.Clock

	// CheckoutTimeout bounds how long one launched checkout may stay open.
	// Zero means 15 minutes.
	CheckoutTimeout time.Duration

	Audit   TransitionRecorder
	Events  EventPublisher
	Journal ReconciliationSink
}

// Controller is the state machine for one booking attempt. All transitions are
// serialized under one mutex; user actions, payment outcomes and expiry ticks
// all enter through it. A controller is single-use: once a terminal state is
// reached, a new booking starts with a fresh controller.
type Controller struct {
	id     string
	deps   Deps
	logger observability.Logger
	clk    clock.Clock

	mu            sync.Mutex
	state         State
	stay          domain.StayRequest
	category      domain.RoomCategory
	snapshots     []domain.AvailabilitySnapshot
	noRooms       bool
	activeHold    *domain.Hold
	guest         *domain.GuestInfo
	order         *domain.PaymentOrder
	result        *domain.BookingResult
	lastFailure   string
	failedHoldID  string
	failedPayRef  string
	lastRemaining time.Duration
	availSeq      uint64
	inflight      map[string]bool
	watchQuit     chan struct{}
	payCancel     context.CancelFunc
}

func NewController(id string, deps Deps) *Controller {
	if deps.Audit == nil {
		deps.Audit = nopRecorder{}
	}
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	if deps.Journal == nil {
		deps.Journal = nopSink{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.CheckoutTimeout <= 0 {
		deps.CheckoutTimeout = 15 * time.Minute
	}
	return &Controller{
		id:       id,
		deps:     deps,
		logger:   deps.Logger.WithField("session_id", id),
		clk:      deps.Clock,
		state:    StateIdle,
		inflight: make(map[string]bool),
	}
}

func (c *Controller) ID() string { return c.id }

// CheckAvailability queries the date range and moves the workflow to
// AvailabilityChecked when the chosen category has inventory. Editing dates
// while a hold exists releases that hold first. An empty answer keeps the
// workflow where dates can be re-picked, with the no-rooms signal raised.
// A response that arrives after the dates changed again is discarded.
func (c *Controller) CheckAvailability(ctx context.Context, checkIn, checkOut time.Time, categoryID string) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateAvailabilityChecked, StateHeld, StateGuestInfoCollected:
	default:
		c.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidInput, "cannot change dates in state %s", c.state)
	}
	cat, ok := c.deps.Catalog.Find(categoryID)
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidInput, "unknown category %s", categoryID)
	}
	if !checkOut.After(checkIn) {
		c.mu.Unlock()
		return errors.Wrap(domain.ErrInvalidInput, "check-out must be after check-in")
	}

	if c.activeHold != nil {
		c.releaseHoldLocked(ctx)
		c.transitionLocked(ctx, StateAvailabilityChecked, map[string]interface{}{"reason": "dates_edited"})
	}

	c.availSeq++
	seq := c.availSeq
	c.stay.CheckIn = checkIn
	c.stay.CheckOut = checkOut
	c.stay.CategoryID = categoryID
	c.category = cat
	c.mu.Unlock()

	snaps := c.deps.Availability.Check(ctx, checkIn, checkOut, categoryID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.availSeq || c.state.Terminal() {
		c.logger.Debug("stale availability response discarded")
		return nil
	}

	c.snapshots = snaps
	if c.state != StateIdle && c.state != StateAvailabilityChecked {
		// A hold was placed while the query was outstanding; the hold wins.
		return nil
	}
	if unitsFor(snaps, categoryID) == 0 {
		c.noRooms = true
		if c.state != StateIdle {
			c.transitionLocked(ctx, StateIdle, map[string]interface{}{"reason": "no_rooms"})
		}
		return nil
	}
	c.noRooms = false
	// The snapshot price is authoritative for the queried range and overrides
	// the catalog's cached one.
	if price := priceFor(snaps, categoryID); price > 0 {
		c.category.UnitPrice = price
	}
	if c.state != StateAvailabilityChecked {
		c.transitionLocked(ctx, StateAvailabilityChecked, nil)
	}
	return nil
}

// RequestHold places a hold for the checked dates and arms the expiry clock.
// A failed hold leaves the workflow in AvailabilityChecked with nothing dangling.
func (c *Controller) RequestHold(ctx context.Context, unitCount, guestCount int) error {
	c.mu.Lock()
	if c.state != StateAvailabilityChecked {
		c.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidInput, "cannot request hold in state %s", c.state)
	}
	if c.inflight[actionHold] {
		c.mu.Unlock()
		return domain.ErrOperationInFlight
	}

	stay := c.stay
	stay.UnitCount = unitCount
	stay.GuestCount = guestCount
	if err := stay.Validate(c.category, c.clk.Now()); err != nil {
		c.mu.Unlock()
		return err
	}
	c.stay = stay
	c.inflight[actionHold] = true
	lines := []domain.HoldLine{{CategoryID: stay.CategoryID, UnitCount: unitCount}}
	c.mu.Unlock()

	h, err := c.deps.Holds.Request(ctx, lines, stay.CheckIn, stay.CheckOut)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, actionHold)
	if err != nil {
		return err
	}
	if c.state != StateAvailabilityChecked {
		// Cancelled or expired while the request was outstanding. The manager
		// already tracks the hold; make sure it gets released.
		c.releaseHoldLocked(ctx)
		return errors.Wrapf(domain.ErrInvalidInput, "workflow moved to %s during hold request", c.state)
	}
	if !c.stay.CheckIn.Equal(stay.CheckIn) || !c.stay.CheckOut.Equal(stay.CheckOut) || c.stay.CategoryID != stay.CategoryID {
		// The guest edited dates or category while the request was
		// outstanding. The hold is for the wrong stay; release it.
		c.releaseHoldLocked(ctx)
		return errors.Wrap(domain.ErrInvalidInput, "stay changed during hold request")
	}

	c.activeHold = &h
	c.armClockLocked(h)
	c.transitionLocked(ctx, StateHeld, map[string]interface{}{
		"hold_group_id": h.GroupID,
		"expires_at":    h.ExpiresAt,
	})
	return nil
}

// SubmitGuestInfo validates and stores contact details. Accepted from Held,
// including the return to Held after a failed payment, and re-accepted from
// GuestInfoCollected so the guest can correct a typo.
func (c *Controller) SubmitGuestInfo(ctx context.Context, guest domain.GuestInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateHeld && c.state != StateGuestInfoCollected {
		return errors.Wrapf(domain.ErrInvalidInput, "cannot submit guest info in state %s", c.state)
	}
	if err := guest.Validate(); err != nil {
		return err
	}
	c.guest = &guest
	if c.state == StateHeld {
		c.transitionLocked(ctx, StateGuestInfoCollected, nil)
	}
	return nil
}

// BeginPayment creates a payment order for the held reservation and hands it
// to the checkout. The checkout outcome and the follow-up confirmation run
// asynchronously; the workflow is observable in PaymentInFlight until one
// outcome lands. The order amount must equal the locally computed total; a
// gateway quoting a different amount is refused before any money moves.
func (c *Controller) BeginPayment(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateGuestInfoCollected {
		c.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidInput, "cannot start payment in state %s", c.state)
	}
	if c.inflight[actionPayment] {
		c.mu.Unlock()
		return domain.ErrOperationInFlight
	}
	if c.activeHold == nil {
		c.mu.Unlock()
		return domain.ErrNoActiveHold
	}
	holdID := c.activeHold.GroupID
	guest := *c.guest
	stay := c.stay
	cat := c.category
	c.inflight[actionPayment] = true
	c.mu.Unlock()

	order, err := c.deps.Payments.CreateOrder(ctx, holdID, guest)
	if err != nil {
		c.mu.Lock()
		delete(c.inflight, actionPayment)
		c.lastFailure = "order-creation-failed"
		c.mu.Unlock()
		return errors.Wrap(err, "create payment order")
	}

	want := pricing.TotalMinor(stay.CheckIn, stay.CheckOut, cat, stay.UnitCount, stay.GuestCount)
	if order.Amount != want {
		c.mu.Lock()
		delete(c.inflight, actionPayment)
		c.lastFailure = "order-amount-mismatch"
		c.mu.Unlock()
		c.logger.WithField("order_amount", order.Amount).WithField("computed_amount", want).
			Error("payment order amount disagrees with computed total")
		return errors.Wrapf(domain.ErrSchemaMismatch, "order amount %d, computed %d", order.Amount, want)
	}

	c.mu.Lock()
	if c.state != StateGuestInfoCollected {
		delete(c.inflight, actionPayment)
		c.mu.Unlock()
		return errors.Wrapf(domain.ErrInvalidInput, "workflow moved to %s during order creation", c.state)
	}
	c.order = &order
	payCtx, cancel := context.WithTimeout(context.Background(), c.deps.CheckoutTimeout)
	c.payCancel = cancel
	c.transitionLocked(ctx, StatePaymentInFlight, map[string]interface{}{"order_id": order.ID})
	c.mu.Unlock()

	go c.runCheckout(payCtx, order, guest, holdID)
	return nil
}

// runCheckout blocks on the checkout's single outcome, then either confirms
// the booking or returns the workflow to Held for a retry.
func (c *Controller) runCheckout(ctx context.Context, order domain.PaymentOrder, guest domain.GuestInfo, holdID string) {
	outcome, err := c.deps.Payments.Launch(ctx, order, guest)
	if err != nil {
		c.settlePaymentFailure(ctx, "checkout-unavailable")
		return
	}

	switch outcome.Kind {
	case domain.OutcomeSuccess:
		// Money has moved; the confirm call must not be cut short by the
		// checkout's own deadline.
		confirmCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		c.confirmPaid(confirmCtx, holdID, outcome.PaymentRef, order.Amount, guest)
	case domain.OutcomeFailure:
		reason := outcome.Reason
		if reason == "" {
			reason = "payment-failed"
		}
		c.settlePaymentFailure(ctx, reason)
	case domain.OutcomeUserCancelled:
		c.settlePaymentFailure(ctx, "payment-cancelled")
	}
}

// settlePaymentFailure returns the workflow to Held with the hold preserved.
// If the hold expired or the workflow was cancelled while the checkout was
// open, the terminal state wins and the outcome is dropped.
func (c *Controller) settlePaymentFailure(ctx context.Context, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, actionPayment)
	if c.payCancel != nil {
		c.payCancel()
		c.payCancel = nil
	}
	if c.state != StatePaymentInFlight {
		c.logger.WithField("reason", reason).Debug("late payment outcome dropped")
		return
	}
	c.order = nil
	c.lastFailure = reason
	c.transitionLocked(ctx, StateHeld, map[string]interface{}{"reason": reason})
}

// confirmPaid exchanges the paid hold for booking records. The expiry check
// runs under the lock immediately before the confirm call: once Expired has
// been reached, no confirm is ever issued for that hold.
func (c *Controller) confirmPaid(ctx context.Context, holdID, paymentRef string, amount int64, guest domain.GuestInfo) {
	c.mu.Lock()
	if c.state != StatePaymentInFlight || c.activeHold == nil || c.activeHold.GroupID != holdID {
		delete(c.inflight, actionPayment)
		if c.payCancel != nil {
			c.payCancel()
			c.payCancel = nil
		}
		c.mu.Unlock()
		c.logger.WithField("hold_group_id", holdID).WithField("payment_ref", paymentRef).
			Warn("payment succeeded after workflow left payment state, dropping confirm")
		return
	}
	c.mu.Unlock()

	result, err := c.deps.Bookings.Confirm(ctx, holdID, paymentRef, amount)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, actionPayment)
	if c.payCancel != nil {
		c.payCancel()
		c.payCancel = nil
	}
	if c.state != StatePaymentInFlight {
		c.logger.Warn("workflow left payment state during confirmation")
		return
	}

	if err != nil {
		// Money has moved but the booking does not exist. Keep the hold and
		// payment identifiers visible for a support conversation; never fold
		// this into an ordinary payment failure.
		c.failedHoldID = holdID
		c.failedPayRef = paymentRef
		c.disarmClockLocked()
		c.transitionLocked(ctx, StateConfirmationFailed, map[string]interface{}{
			"hold_group_id": holdID,
			"payment_ref":   paymentRef,
		})
		if jerr := c.deps.Journal.RecordFailure(ctx, c.id, holdID, paymentRef,
			guest.Name, guest.Email, guest.Phone, amount, err.Error()); jerr != nil {
			c.logger.WithField("error", jerr.Error()).Error("failed to journal confirmation failure")
		}
		c.publishLocked(ctx, "booking.confirmation_failed", map[string]interface{}{
			"session_id":    c.id,
			"hold_group_id": holdID,
			"payment_ref":   paymentRef,
		})
		return
	}

	c.result = &result
	c.deps.Holds.Consume()
	c.activeHold = nil
	c.disarmClockLocked()
	c.transitionLocked(ctx, StateConfirmed, map[string]interface{}{
		"booking_ids": result.BookingIDs,
	})
	c.publishLocked(ctx, "booking.confirmed", map[string]interface{}{
		"session_id":   c.id,
		"booking_ids":  result.BookingIDs,
		"total_amount": result.TotalAmount,
	})
}

// Cancel ends the workflow: the clock is disarmed, any in-flight payment
// attempt is abandoned, and the hold is released best-effort. Idempotent, and
// a no-op once a terminal state is reached.
func (c *Controller) Cancel(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	if c.payCancel != nil {
		c.payCancel()
		c.payCancel = nil
	}
	c.releaseHoldLocked(ctx)
	c.transitionLocked(ctx, StateCancelled, nil)
}

// Snapshot is the externally observable state of one booking attempt.
type Snapshot struct {
	State        State
	Stay         domain.StayRequest
	Category     domain.RoomCategory
	CatalogTier  catalog.Tier
	Availability []domain.AvailabilitySnapshot
	NoRooms      bool
	Hold         *domain.Hold
	Remaining    time.Duration
	Guest        *domain.GuestInfo
	Order        *domain.PaymentOrder
	Result       *domain.BookingResult
	LastFailure  string

	// Set only in ConfirmationFailed, for the support escalation path.
	FailedHoldGroupID string
	FailedPaymentRef  string
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:             c.state,
		Stay:              c.stay,
		Category:          c.category,
		CatalogTier:       c.deps.Catalog.Tier,
		Availability:      append([]domain.AvailabilitySnapshot(nil), c.snapshots...),
		NoRooms:           c.noRooms,
		LastFailure:       c.lastFailure,
		FailedHoldGroupID: c.failedHoldID,
		FailedPaymentRef:  c.failedPayRef,
	}
	if c.activeHold != nil {
		h := *c.activeHold
		s.Hold = &h
		s.Remaining = c.lastRemaining
		if rem := h.ExpiresAt.Sub(c.clk.Now()); rem > 0 && c.lastRemaining == 0 {
			s.Remaining = rem
		}
	}
	if c.guest != nil {
		g := *c.guest
		s.Guest = &g
	}
	if c.order != nil {
		o := *c.order
		s.Order = &o
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	return s
}

// UserMessage renders the plain-language status for the snapshot's state:
// what happened and what the guest can do next.
func (s Snapshot) UserMessage() string {
	switch s.State {
	case StateIdle:
		if s.NoRooms {
			return "No rooms are available for those dates. Please try different dates."
		}
		return "Pick your dates to check availability."
	case StateAvailabilityChecked:
		return "Rooms are available. Choose how many to reserve."
	case StateHeld:
		if s.LastFailure != "" {
			return "Payment did not complete (" + s.LastFailure + "). Your rooms are still held; you can try again."
		}
		return "Your rooms are held. Enter guest details to continue."
	case StateGuestInfoCollected:
		return "Ready to pay."
	case StatePaymentInFlight:
		return "Completing your payment..."
	case StateConfirmed:
		return "Your booking is confirmed."
	case StateConfirmationFailed:
		return "Your payment succeeded but we could not finalize the booking. Please contact support and quote hold " +
			s.FailedHoldGroupID + " and payment " + s.FailedPaymentRef + "."
	case StateExpired:
		return "Your reservation hold has expired. Please start again."
	case StateCancelled:
		return "Booking cancelled."
	}
	return ""
}

// armClockLocked retires any previous countdown, arms a new one for the hold's
// deadline, and starts the watcher that turns its signals into transitions.
func (c *Controller) armClockLocked(h domain.Hold) {
	c.disarmClockLocked()
	cd := c.deps.Expiry.Arm(h.ExpiresAt)
	quit := make(chan struct{})
	c.watchQuit = quit
	go c.watch(cd, h.GroupID, quit)
}

func (c *Controller) disarmClockLocked() {
	if c.watchQuit != nil {
		close(c.watchQuit)
		c.watchQuit = nil
	}
	c.deps.Expiry.Disarm()
	c.lastRemaining = 0
}

func (c *Controller) watch(cd *hold.Countdown, holdID string, quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case rem := <-cd.Remaining:
			c.mu.Lock()
			c.lastRemaining = rem
			c.mu.Unlock()
		case <-cd.Expired:
			c.onExpired(holdID)
			return
		}
	}
}

// onExpired moves the workflow to Expired when the countdown fires for the
// hold that is still current. The hold is dropped without a network call: it
// is already dead server-side. A checkout still open at this point keeps
// running, but its success can no longer reach a confirm call.
func (c *Controller) onExpired(holdID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeHold == nil || c.activeHold.GroupID != holdID {
		return
	}
	switch c.state {
	case StateHeld, StateGuestInfoCollected, StatePaymentInFlight:
	default:
		return
	}

	if c.payCancel != nil {
		c.payCancel()
		c.payCancel = nil
	}
	c.deps.Holds.Drop()
	c.activeHold = nil
	c.order = nil
	c.watchQuit = nil
	observability.HoldsExpired.Inc()
	c.transitionLocked(ctx, StateExpired, map[string]interface{}{"hold_group_id": holdID})
	c.publishLocked(ctx, "hold.expired", map[string]interface{}{
		"session_id":    c.id,
		"hold_group_id": holdID,
	})
}

// releaseHoldLocked disarms the clock and releases the hold via the manager,
// which also covers a hold acquired by a request that is still outstanding.
func (c *Controller) releaseHoldLocked(ctx context.Context) {
	c.disarmClockLocked()
	c.activeHold = nil
	c.order = nil
	c.deps.Holds.Cancel(ctx)
}

func (c *Controller) transitionLocked(ctx context.Context, to State, data map[string]interface{}) {
	from := c.state
	c.state = to
	observability.WorkflowTransitions.WithLabelValues(string(from), string(to)).Inc()
	c.logger.WithField("from", string(from)).WithField("to", string(to)).Info("workflow transition")
	if err := c.deps.Audit.RecordTransition(ctx, c.id, string(from), string(to), data); err != nil {
		c.logger.WithField("error", err.Error()).Warn("failed to record transition")
	}
}

func (c *Controller) publishLocked(ctx context.Context, key string, payload map[string]interface{}) {
	if err := c.deps.Events.Publish(ctx, key, payload); err != nil {
		c.logger.WithField("error", err.Error()).WithField("event", key).Warn("event publish failed")
	}
}

func unitsFor(snaps []domain.AvailabilitySnapshot, categoryID string) int {
	for _, s := range snaps {
		if s.CategoryID == categoryID {
			return s.AvailableUnits
		}
	}
	return 0
}

func priceFor(snaps []domain.AvailabilitySnapshot, categoryID string) int64 {
	for _, s := range snaps {
		if s.CategoryID == categoryID {
			return s.UnitPrice
		}
	}
	return 0
}
