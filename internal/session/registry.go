package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
)

// CountObserver is told the number of live sessions after every change.
type CountObserver interface {
	SessionsActive(n int)
}

// Registry keeps one coordinator per session id.
type Registry struct {
	deps     Deps
	observer CountObserver
	logger   *infra.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Coordinator
}

func NewRegistry(deps Deps, observer CountObserver) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Registry{
		deps:     deps,
		observer: observer,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Coordinator),
	}
}

func (r *Registry) Create() *Coordinator {
	id := uuid.NewString()
	c := NewCoordinator(id, r.deps)
	c.now = r.now
	c.updatedAt = r.now()

	r.mu.Lock()
	r.sessions[id] = c
	n := len(r.sessions)
	r.mu.Unlock()

	r.report(n)
	r.logger.Debug().Str("session_id", id).Msg("session: created")
	return c
}

func (r *Registry) Get(id string) (*Coordinator, error) {
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// Delete closes the session, abandoning any polling it still runs.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	c.Close()
	r.report(n)
	return nil
}

// Sweep closes sessions that have been idle for longer than maxIdle. Busy
// sessions are kept. It returns the number of sessions removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var expired []*Coordinator

	r.mu.Lock()
	for id, c := range r.sessions {
		snap := c.Snapshot()
		if snap.Busy || !snap.UpdatedAt.Before(cutoff) {
			continue
		}
		expired = append(expired, c)
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		r.report(n)
		r.logger.Info().Int("expired", len(expired)).Int("remaining", n).Msg("session: idle sessions swept")
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close shuts down every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Coordinator, 0, len(r.sessions))
	for id, c := range r.sessions {
		all = append(all, c)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
	r.report(0)
}

func (r *Registry) report(n int) {
	if r.observer != nil {
		r.observer.SessionsActive(n)
	}
}
