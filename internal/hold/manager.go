package hold

import (
	"context"
	"sync"
	"time"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

type API interface {
	CreateHold(ctx context.Context, lines []domain.HoldLine, checkIn, checkOut time.Time) (domain.Hold, error)
	CancelHold(ctx context.Context, holdGroupID string) error
}

// Manager owns the one piece of session-scoped mutable state: the currently
// active hold. At most one hold is active per manager; a new request tears
// down the previous hold first.
type Manager struct {
	api           API
	logger        observability.Logger
	cancelTimeout time.Duration

	mu     sync.Mutex
	active *domain.Hold
}

func NewManager(api API, logger observability.Logger) *Manager {
	return &Manager{api: api, logger: logger, cancelTimeout: 5 * time.Second}
}

// Request places a hold for the given lines. Any previously active hold is
// cancelled first; that cancellation is initiated before the new request but
// not awaited, and its failure is logged, never surfaced. The new request's
// result is authoritative.
func (m *Manager) Request(ctx context.Context, lines []domain.HoldLine, checkIn, checkOut time.Time) (domain.Hold, error) {
	m.mu.Lock()
	prev := m.active
	m.active = nil
	m.mu.Unlock()

	if prev != nil {
		m.cancelDetached(prev.GroupID)
	}

	h, err := m.api.CreateHold(ctx, lines, checkIn, checkOut)
	if err != nil {
		return domain.Hold{}, err
	}

	m.mu.Lock()
	m.active = &h
	m.mu.Unlock()
	observability.HoldsCreated.Inc()
	return h, nil
}

// Cancel releases the active hold, if any. Safe to call repeatedly and during
// teardown; the backend treats cancelling a dead hold as a no-op and so do we.
func (m *Manager) Cancel(ctx context.Context) {
	m.mu.Lock()
	h := m.active
	m.active = nil
	m.mu.Unlock()

	if h == nil {
		return
	}
	if err := m.api.CancelHold(ctx, h.GroupID); err != nil {
		m.logger.WithField("hold_group_id", h.GroupID).WithField("error", err.Error()).Warn("hold cancellation failed")
	}
}

// Drop forgets the active hold without a network call. Used on expiry, when
// the hold is already dead server-side.
func (m *Manager) Drop() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// Consume retires the hold after a successful booking confirmation. The hold
// was spent, not abandoned, so no cancellation call is issued.
func (m *Manager) Consume() {
	m.Drop()
}

// Active returns a copy of the current hold, or nil.
func (m *Manager) Active() *domain.Hold {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	h := *m.active
	return &h
}

func (m *Manager) cancelDetached(holdGroupID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cancelTimeout)
		defer cancel()
		if err := m.api.CancelHold(ctx, holdGroupID); err != nil {
			m.logger.WithField("hold_group_id", holdGroupID).WithField("error", err.Error()).Warn("superseded hold cancellation failed")
		}
	}()
}
