package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Capability is the host-provided credential facility. It is injected into
// the Gate rather than looked up globally.
type Capability interface {
	// HasCredential reports whether a usable key is already configured.
	HasCredential(ctx context.Context) (bool, error)
	// PromptForCredential asks the user for a key through p and registers it.
	PromptForCredential(ctx context.Context, p Prompter) error
	// APIKey returns the currently registered key, or "" when there is none.
	APIKey(ctx context.Context) (string, error)
}

// Prompter obtains a key from the user.
type Prompter interface {
	PromptKey(ctx context.Context) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (string, error)

func (f PrompterFunc) PromptKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticKey is a Prompter that always answers with key. The HTTP API uses it
// to forward a key submitted in a request body.
func StaticKey(key string) Prompter {
	return PrompterFunc(func(context.Context) (string, error) {
		return key, nil
	})
}

var errEmptyKey = errors.New("credentials: empty key")

// MemoryCapability keeps the key in process memory for the lifetime of the
// session. It is seeded from configuration when a key is provided there.
type MemoryCapability struct {
	mu  sync.RWMutex
	key string
}

func NewMemoryCapability(initial string) *MemoryCapability {
	return &MemoryCapability{key: strings.TrimSpace(initial)}
}

func (m *MemoryCapability) HasCredential(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key != "", nil
}

func (m *MemoryCapability) PromptForCredential(ctx context.Context, p Prompter) error {
	key, err := promptKey(ctx, p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.key = key
	m.mu.Unlock()
	return nil
}

func (m *MemoryCapability) APIKey(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key, nil
}

// StoreCapability keeps the key in the Postgres-backed Store so that it
// survives restarts and is shared between the API and the CLI tools.
type StoreCapability struct {
	store *Store

	mu     sync.RWMutex
	cached string
}

func NewStoreCapability(store *Store) *StoreCapability {
	return &StoreCapability{store: store}
}

func (s *StoreCapability) HasCredential(ctx context.Context) (bool, error) {
	key, err := s.APIKey(ctx)
	if err != nil {
		return false, err
	}
	return key != "", nil
}

func (s *StoreCapability) PromptForCredential(ctx context.Context, p Prompter) error {
	key, err := promptKey(ctx, p)
	if err != nil {
		return err
	}
	if err := s.store.SetGeminiAPIKey(ctx, key); err != nil {
		return fmt.Errorf("credentials: persist key: %w", err)
	}
	s.mu.Lock()
	s.cached = key
	s.mu.Unlock()
	return nil
}

func (s *StoreCapability) APIKey(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}
	key, err := s.store.GeminiAPIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("credentials: load key: %w", err)
	}
	if key != "" {
		s.mu.Lock()
		s.cached = key
		s.mu.Unlock()
	}
	return key, nil
}

// Chain consults several capabilities in order. The first one that reports
// a key wins; prompting always goes to the first capability.
type Chain []Capability

func (c Chain) HasCredential(ctx context.Context) (bool, error) {
	var errs []error
	for _, capability := range c {
		ok, err := capability.HasCredential(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

func (c Chain) PromptForCredential(ctx context.Context, p Prompter) error {
	if len(c) == 0 {
		return errors.New("credentials: no capability configured")
	}
	return c[0].PromptForCredential(ctx, p)
}

func (c Chain) APIKey(ctx context.Context) (string, error) {
	var errs []error
	for _, capability := range c {
		key, err := capability.APIKey(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if key != "" {
			return key, nil
		}
	}
	return "", errors.Join(errs...)
}

// TerminalPrompter asks for a key on a terminal-like stream.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (t TerminalPrompter) PromptKey(ctx context.Context) (string, error) {
	if t.Out != nil {
		fmt.Fprintln(t.Out, "A paid Gemini API key from a Google Cloud project with billing enabled is required.")
		fmt.Fprintln(t.Out, "See https://ai.google.dev/gemini-api/docs/billing")
		fmt.Fprint(t.Out, "API key: ")
	}
	lines := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(t.In)
		if scanner.Scan() {
			lines <- scanner.Text()
			return
		}
		if err := scanner.Err(); err != nil {
			errc <- err
			return
		}
		errc <- io.EOF
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errc:
		return "", fmt.Errorf("credentials: read key: %w", err)
	case line := <-lines:
		return strings.TrimSpace(line), nil
	}
}

func promptKey(ctx context.Context, p Prompter) (string, error) {
	if p == nil {
		return "", errors.New("credentials: no prompter available")
	}
	key, err := p.PromptKey(ctx)
	if err != nil {
		return "", err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errEmptyKey
	}
	return key, nil
}

var (
	_ Capability = (*MemoryCapability)(nil)
	_ Capability = (*StoreCapability)(nil)
	_ Capability = Chain(nil)
)
