package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/woodlands-thekkady/booking-flow/internal/clock"
	"github.com/woodlands-thekkady/booking-flow/internal/observability"
	"github.com/woodlands-thekkady/booking-flow/internal/workflow"
)

// Factory builds a fresh workflow controller for a new session. Controllers
// are single-use, so every session gets its own.
type Factory func(id string) *workflow.Controller

type entry struct {
	ctrl     *workflow.Controller
	lastSeen time.Time
}

// Registry maps session ids to their workflow controllers and reaps sessions
// that have gone quiet. A reaped session is cancelled first, so an abandoned
// browser tab still releases its hold.
type Registry struct {
	factory Factory
	idleTTL time.Duration
	sweep   time.Duration
	logger  observability.Logger
	clk     clock.Clock

	mu       sync.Mutex
	sessions map[string]*entry
}

type Option func(*Registry)

// WithSweepInterval overrides how often the reaper scans (tests).
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sweep = d
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(r *Registry) {
		r.clk = clk
	}
}

func NewRegistry(factory Factory, idleTTL time.Duration, logger observability.Logger, opts ...Option) *Registry {
	r := &Registry{
		factory:  factory,
		idleTTL:  idleTTL,
		sweep:    time.Minute,
		logger:   logger,
		clk:      clock.NewSystem(),
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new session and returns its id and controller.
func (r *Registry) Create() (string, *workflow.Controller) {
	id := uuid.NewString()
	ctrl := r.factory(id)

	r.mu.Lock()
	r.sessions[id] = &entry{ctrl: ctrl, lastSeen: r.clk.Now()}
	n := len(r.sessions)
	r.mu.Unlock()

	observability.ActiveSessions.Set(float64(n))
	r.logger.WithField("session_id", id).Info("session created")
	return id, ctrl
}

// Get returns the session's controller and refreshes its idle deadline.
func (r *Registry) Get(id string) (*workflow.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.clk.Now()
	return e.ctrl, true
}

// Remove cancels the session's workflow and forgets it. Safe for unknown ids.
func (r *Registry) Remove(ctx context.Context, id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return
	}
	observability.ActiveSessions.Set(float64(n))
	e.ctrl.Cancel(ctx)
	r.logger.WithField("session_id", id).Info("session removed")
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps for idle sessions until ctx is done. Intended to run as its own
// goroutine alongside the HTTP server.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Registry) reap(ctx context.Context) {
	cutoff := r.clk.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*entry
	var staleIDs []string
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e)
			staleIDs = append(staleIDs, id)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if len(stale) == 0 {
		return
	}
	observability.ActiveSessions.Set(float64(n))
	for i, e := range stale {
		e.ctrl.Cancel(ctx)
		r.logger.WithField("session_id", staleIDs[i]).Info("idle session reaped")
	}
}
