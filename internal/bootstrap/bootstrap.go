// Package bootstrap assembles the generation pipeline from configuration.
// Both the API server and the CLI build their components here.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"logomotion/internal/animation"
	"logomotion/internal/credentials"
	"logomotion/internal/infra"
	"logomotion/internal/logo"
	"logomotion/internal/metrics"
	"logomotion/internal/providers/genai"
	"logomotion/internal/providers/genaisdk"
	"logomotion/internal/providers/image"
	"logomotion/internal/providers/video"
	"logomotion/internal/session"
	"logomotion/internal/storage"
)

const defaultGeminiHost = "https://generativelanguage.googleapis.com"

// Backend is a provider client that serves both generation steps.
type Backend interface {
	image.Generator
	video.Generator
}

// Components is the wired pipeline. Close releases the database pool if
// one was opened.
type Components struct {
	Gate       *credentials.Gate
	Logos      *logo.Client
	Animations *animation.Manager
	Blobs      storage.BlobStore

	pool *pgxpool.Pool
}

func (c *Components) SessionDeps(logger *infra.Logger) session.Deps {
	return session.Deps{
		Logos:  c.Logos,
		Videos: c.Animations,
		Gate:   c.Gate,
		Blobs:  c.Blobs,
		Logger: logger,
	}
}

func (c *Components) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Options tweaks Build. Recorder may be nil.
type Options struct {
	Recorder *metrics.Recorder
	// SkipDatabase keeps the key in memory even when DATABASE_URL is set.
	SkipDatabase bool
}

// Build wires the credential gate, the provider backend, the blob store and
// the two generation steps.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger, opts Options) (*Components, error) {
	if logger == nil {
		logger = infra.NopLogger()
	}
	comps := &Components{}

	capability, pool, err := NewCapability(ctx, cfg, logger, opts.SkipDatabase)
	if err != nil {
		return nil, err
	}
	comps.pool = pool
	comps.Gate = credentials.NewGate(capability, logger)

	backend, err := NewBackend(cfg, comps.Gate, logger)
	if err != nil {
		comps.Close()
		return nil, err
	}

	blobs, err := NewBlobStore(ctx, cfg)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Blobs = blobs

	var (
		logoObserver      logo.Observer
		animationObserver animation.Observer
	)
	if opts.Recorder != nil {
		logoObserver = opts.Recorder
		animationObserver = opts.Recorder
	}

	comps.Logos, err = logo.NewClient(logo.Options{
		Generator:   backend,
		Model:       cfg.ImageModel,
		Invalidator: comps.Gate,
		Observer:    logoObserver,
		Logger:      logger,
	})
	if err != nil {
		comps.Close()
		return nil, err
	}

	comps.Animations, err = animation.NewManager(animation.Options{
		Generator:    backend,
		Blobs:        blobs,
		Model:        cfg.VideoModel,
		Resolution:   cfg.VideoResolution,
		PollInterval: cfg.VideoPollInterval,
		MaxPolls:     cfg.VideoMaxPolls,
		Timeout:      cfg.VideoTimeout,
		Invalidator:  comps.Gate,
		Observer:     animationObserver,
		Logger:       logger,
	})
	if err != nil {
		comps.Close()
		return nil, err
	}
	return comps, nil
}

// NewCapability returns the in-memory capability seeded from
// GEMINI_API_KEY, chained behind the Postgres store when DATABASE_URL is
// set. Keys selected at runtime go to the first capability of the chain.
func NewCapability(ctx context.Context, cfg *infra.Config, logger *infra.Logger, skipDatabase bool) (credentials.Capability, *pgxpool.Pool, error) {
	memory := credentials.NewMemoryCapability(cfg.GeminiAPIKey)
	if skipDatabase || cfg.DatabaseURL == "" {
		return memory, nil, nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger.With().Str("component", "credentials").Logger()))
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure credential schema: %w", err)
	}
	return credentials.Chain{credentials.NewStoreCapability(store), memory}, pool, nil
}

// NewBackend picks the REST or SDK provider client.
func NewBackend(cfg *infra.Config, keys genai.KeySource, logger *infra.Logger) (Backend, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderHTTPTimeout}
	switch cfg.GenAIBackend {
	case infra.BackendSDK:
		client, err := genaisdk.NewClient(genaisdk.Options{
			Keys:       keys,
			BaseURL:    sdkBaseURL(cfg.GeminiBaseURL),
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case infra.BackendREST, "":
		client, err := genai.NewClient(genai.Options{
			Keys:       keys,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported genai backend %q", cfg.GenAIBackend)
	}
}

// NewBlobStore opens the configured video store.
func NewBlobStore(ctx context.Context, cfg *infra.Config) (storage.BlobStore, error) {
	switch cfg.StorageBackend {
	case infra.StorageFile:
		store, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case infra.StorageMinio:
		store, err := storage.NewMinioStore(storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case infra.StorageMemory, "":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// sdkBaseURL converts the REST base URL into the host form the SDK expects.
// The public endpoint maps to "" so the SDK keeps its own default.
func sdkBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	for _, version := range []string{"/v1beta", "/v1alpha", "/v1"} {
		base = strings.TrimSuffix(base, version)
	}
	if base == defaultGeminiHost {
		return ""
	}
	return base
}
