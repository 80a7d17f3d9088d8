// Package logo turns a text description into a single square logo image.
package logo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
	"logomotion/internal/providers/image"
)

const (
	DefaultModel     = "gemini-3-pro-image-preview"
	defaultMediaType = "image/png"
	squareAspect     = "1:1"
)

// Invalidator is told about errors that mean the active key was rejected.
type Invalidator interface {
	Invalidate(cause error)
}

// Observer receives the outcome of each generation. It may be nil.
type Observer interface {
	LogoGenerated(tier domain.ResolutionTier, err error)
}

type Options struct {
	Generator   image.Generator
	Model       string
	Invalidator Invalidator
	Observer    Observer
	Logger      *infra.Logger
}

// Client issues exactly one image generation request per call. It does not
// retry.
type Client struct {
	generator   image.Generator
	model       string
	invalidator Invalidator
	observer    Observer
	logger      *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.Generator == nil {
		return nil, errors.New("logo: image generator is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		generator:   opts.Generator,
		model:       model,
		invalidator: opts.Invalidator,
		observer:    opts.Observer,
		logger:      logger,
	}, nil
}

// Generate produces a logo for req. The first inline image of the response
// wins; a response without one is reported as domain.ErrNoImage.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (domain.LogoResult, error) {
	result, err := c.generate(ctx, req)
	if c.observer != nil {
		c.observer.LogoGenerated(req.Tier, err)
	}
	return result, err
}

func (c *Client) generate(ctx context.Context, req domain.GenerationRequest) (domain.LogoResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return domain.LogoResult{}, domain.ErrInvalidPrompt
	}
	tier := req.Tier
	if tier == "" {
		tier = domain.Tier1K
	}

	resp, err := c.generator.GenerateImage(ctx, image.Request{
		Model:       c.model,
		Prompt:      domain.LogoPrompt(prompt),
		ImageSize:   string(tier),
		AspectRatio: squareAspect,
	})
	if err != nil {
		err = domain.TranslateProviderError(err)
		if errors.Is(err, domain.ErrCredentialExpired) && c.invalidator != nil {
			c.invalidator.Invalidate(err)
		}
		c.logger.Error().Err(err).Str("tier", string(tier)).Msg("logo: generation failed")
		return domain.LogoResult{}, fmt.Errorf("generate logo: %w", err)
	}

	if resp == nil || len(resp.Images) == 0 {
		c.logger.Warn().Str("tier", string(tier)).Msg("logo: response carried no image")
		return domain.LogoResult{}, domain.ErrNoImage
	}

	first := resp.Images[0]
	mediaType := strings.TrimSpace(first.MIMEType)
	if mediaType == "" {
		mediaType = defaultMediaType
	}
	c.logger.Info().Str("tier", string(tier)).Str("media_type", mediaType).Msg("logo: generated")
	return domain.LogoResult{ImageData: first.Data, MediaType: mediaType}, nil
}
