package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
	"github.com/woodlands-thekkady/booking-flow/internal/payment"
	"github.com/woodlands-thekkady/booking-flow/internal/session"
	"github.com/woodlands-thekkady/booking-flow/internal/voucher"
	"github.com/woodlands-thekkady/booking-flow/internal/workflow"
)

const dateLayout = "2006-01-02"

type Handlers struct {
	sessions *session.Registry
	checkout *payment.CallbackCheckout
	logger   observability.Logger
}

func NewHandlers(sessions *session.Registry, checkout *payment.CallbackCheckout, logger observability.Logger) *Handlers {
	return &Handlers{sessions: sessions, checkout: checkout, logger: logger}
}

type holdView struct {
	HoldGroupID      string `json:"hold_group_id"`
	ExpiresAt        string `json:"expires_at"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

type orderView struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type resultView struct {
	BookingIDs  []string `json:"booking_ids"`
	TotalAmount int64    `json:"total_amount"`
}

type supportView struct {
	HoldGroupID string `json:"hold_group_id"`
	PaymentRef  string `json:"payment_ref"`
}

type availabilityView struct {
	Category       string `json:"category"`
	AvailableUnits int    `json:"available_units"`
	UnitPrice      int64  `json:"unit_price"`
}

type sessionView struct {
	SessionID    string             `json:"session_id"`
	State        string             `json:"state"`
	Message      string             `json:"message"`
	CatalogTier  string             `json:"catalog_tier"`
	NoRooms      bool               `json:"no_rooms,omitempty"`
	Availability []availabilityView `json:"availability,omitempty"`
	Hold         *holdView          `json:"hold,omitempty"`
	Order        *orderView         `json:"order,omitempty"`
	Result       *resultView        `json:"result,omitempty"`
	LastFailure  string             `json:"last_failure,omitempty"`
	Support      *supportView       `json:"support,omitempty"`
}

func viewOf(id string, snap workflow.Snapshot) sessionView {
	v := sessionView{
		SessionID:   id,
		State:       string(snap.State),
		Message:     snap.UserMessage(),
		CatalogTier: string(snap.CatalogTier),
		NoRooms:     snap.NoRooms,
		LastFailure: snap.LastFailure,
	}
	for _, s := range snap.Availability {
		v.Availability = append(v.Availability, availabilityView{
			Category:       s.CategoryID,
			AvailableUnits: s.AvailableUnits,
			UnitPrice:      s.UnitPrice,
		})
	}
	if snap.Hold != nil {
		v.Hold = &holdView{
			HoldGroupID:      snap.Hold.GroupID,
			ExpiresAt:        snap.Hold.ExpiresAt.Format(time.RFC3339),
			RemainingSeconds: int64(snap.Remaining / time.Second),
		}
	}
	if snap.Order != nil {
		v.Order = &orderView{ID: snap.Order.ID, Amount: snap.Order.Amount, Currency: snap.Order.Currency}
	}
	if snap.Result != nil {
		v.Result = &resultView{BookingIDs: snap.Result.BookingIDs, TotalAmount: snap.Result.TotalAmount}
	}
	if snap.State == workflow.StateConfirmationFailed {
		v.Support = &supportView{HoldGroupID: snap.FailedHoldGroupID, PaymentRef: snap.FailedPaymentRef}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidGuestInfo):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrHoldUnavailable):
		http.Error(w, "rooms can no longer be held for those dates", http.StatusConflict)
	case errors.Is(err, domain.ErrOperationInFlight):
		http.Error(w, "a previous request is still being processed", http.StatusConflict)
	case errors.Is(err, domain.ErrNoActiveHold):
		http.Error(w, "no active hold", http.StatusConflict)
	case errors.Is(err, domain.ErrSchemaMismatch):
		http.Error(w, "reservation backend returned an unusable response", http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*workflow.Controller, string, bool) {
	id := chi.URLParam(r, "id")
	ctrl, ok := h.sessions.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, "", false
	}
	return ctrl, id, true
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, ctrl := h.sessions.Create()
	writeJSON(w, http.StatusCreated, viewOf(id, ctrl.Snapshot()))
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, ctrl.Snapshot()))
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.sessions.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		http.Error(w, "check_in must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		http.Error(w, "check_out must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := ctrl.CheckAvailability(r.Context(), checkIn, checkOut, req.Category); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, ctrl.Snapshot()))
}

func (h *Handlers) RequestHold(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		UnitCount  int `json:"unit_count"`
		GuestCount int `json:"guest_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := ctrl.RequestHold(r.Context(), req.UnitCount, req.GuestCount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(id, ctrl.Snapshot()))
}

func (h *Handlers) SubmitGuestInfo(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	guest := domain.GuestInfo{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := ctrl.SubmitGuestInfo(r.Context(), guest); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, ctrl.Snapshot()))
}

func (h *Handlers) BeginPayment(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := ctrl.BeginPayment(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(id, ctrl.Snapshot()))
}

// PaymentCallback receives the gateway's webhook and resolves the pending
// checkout for the order. Late or duplicate callbacks get 410 and are dropped.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID   string `json:"order_id"`
		Status    string `json:"status"`
		PaymentID string `json:"payment_id"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	var outcome domain.PaymentOutcome
	switch req.Status {
	case "success":
		if req.PaymentID == "" {
			http.Error(w, "payment_id required for success", http.StatusBadRequest)
			return
		}
		outcome = domain.PaymentOutcome{Kind: domain.OutcomeSuccess, PaymentRef: req.PaymentID}
	case "failure":
		outcome = domain.PaymentOutcome{Kind: domain.OutcomeFailure, Reason: req.Reason}
	case "dismissed":
		outcome = domain.PaymentOutcome{Kind: domain.OutcomeUserCancelled}
	default:
		http.Error(w, "status must be success, failure or dismissed", http.StatusBadRequest)
		return
	}

	if !h.checkout.Resolve(req.OrderID, outcome) {
		h.logger.WithField("order_id", req.OrderID).Warn("callback for unknown or settled order")
		http.Error(w, "no pending checkout for order", http.StatusGone)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Voucher(w http.ResponseWriter, r *http.Request) {
	ctrl, _, ok := h.session(w, r)
	if !ok {
		return
	}

	snap := ctrl.Snapshot()
	if snap.State != workflow.StateConfirmed || snap.Result == nil || snap.Guest == nil {
		http.Error(w, "voucher is available only for confirmed bookings", http.StatusConflict)
		return
	}

	doc, err := voucher.Render(voucher.Voucher{
		Guest:    *snap.Guest,
		Stay:     snap.Stay,
		Category: snap.Category,
		Result:   *snap.Result,
		IssuedAt: time.Now(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="booking-voucher.txt"`)
	w.Write(doc)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
