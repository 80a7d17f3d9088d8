package credentials

import (
	"context"
	"errors"
	"sync"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
)

// State is the readiness of the Gate.
type State string

const (
	StateChecking        State = "checking"
	StateReady           State = "ready"
	StateNeedsCredential State = "needs_credential"
)

// Gate decides whether generation calls may be attempted. It asks the host
// capability once, falls back to prompting when no key is available or the
// check fails, and trusts a successful selection until an outbound call
// reports the key as rejected.
type Gate struct {
	capability Capability
	logger     *infra.Logger

	mu    sync.RWMutex
	state State
	cause error
}

func NewGate(capability Capability, logger *infra.Logger) *Gate {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Gate{capability: capability, logger: logger, state: StateChecking}
}

// Check queries the capability once. A failed query is treated the same as
// "no credential".
func (g *Gate) Check(ctx context.Context) State {
	ok, err := g.capability.HasCredential(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case err != nil:
		g.logger.Warn().Err(err).Msg("credentials: capability check failed, prompting for a key")
		g.state = StateNeedsCredential
		g.cause = err
	case ok:
		g.state = StateReady
		g.cause = nil
	default:
		g.state = StateNeedsCredential
		g.cause = nil
	}
	return g.state
}

// Select prompts for a key through p. On success the gate becomes ready
// without checking the capability again.
func (g *Gate) Select(ctx context.Context, p Prompter) error {
	if err := g.capability.PromptForCredential(ctx, p); err != nil {
		g.mu.Lock()
		g.state = StateNeedsCredential
		g.cause = err
		g.mu.Unlock()
		return err
	}
	g.mu.Lock()
	g.state = StateReady
	g.cause = nil
	g.mu.Unlock()
	g.logger.Info().Msg("credentials: key selected")
	return nil
}

// Invalidate returns the gate to the prompt after a provider rejected the
// key. Errors that do not signal credential expiry are ignored.
func (g *Gate) Invalidate(cause error) {
	if !errors.Is(cause, domain.ErrCredentialExpired) {
		return
	}
	g.mu.Lock()
	g.state = StateNeedsCredential
	g.cause = cause
	g.mu.Unlock()
	g.logger.Warn().Err(cause).Msg("credentials: key rejected by provider")
}

func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Cause returns the error that last moved the gate away from ready, if any.
func (g *Gate) Cause() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cause
}

func (g *Gate) Ready() bool {
	return g.State() == StateReady
}

// APIKey returns the active key for an outbound call.
func (g *Gate) APIKey(ctx context.Context) (string, error) {
	if !g.Ready() {
		return "", domain.ErrNoCredential
	}
	key, err := g.capability.APIKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", domain.ErrNoCredential
	}
	return key, nil
}
