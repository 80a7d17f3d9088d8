package logo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"logomotion/internal/domain"
	"logomotion/internal/providers/image"
)

type fakeGenerator struct {
	calls []image.Request
	resp  *image.Response
	err   error
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req image.Request) (*image.Response, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

type recordingInvalidator struct {
	causes []error
}

func (r *recordingInvalidator) Invalidate(cause error) {
	r.causes = append(r.causes, cause)
}

type recordingObserver struct {
	errs []error
}

func (r *recordingObserver) LogoGenerated(tier domain.ResolutionTier, err error) {
	r.errs = append(r.errs, err)
}

func newClient(t *testing.T, gen image.Generator, inv Invalidator, obs Observer) *Client {
	t.Helper()
	client, err := NewClient(Options{Generator: gen, Invalidator: inv, Observer: obs})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestGenerateReturnsFirstInlineImage(t *testing.T) {
	gen := &fakeGenerator{resp: &image.Response{Images: []image.InlineImage{
		{Data: "Zmlyc3Q=", MIMEType: "image/png"},
		{Data: "c2Vjb25k", MIMEType: "image/jpeg"},
	}}}
	obs := &recordingObserver{}
	client := newClient(t, gen, nil, obs)

	logo, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "a blue fox", Tier: domain.Tier2K})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if logo.ImageData != "Zmlyc3Q=" || logo.MediaType != "image/png" {
		t.Fatalf("logo = %+v", logo)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %d, want exactly 1", len(gen.calls))
	}
	call := gen.calls[0]
	if call.Model != DefaultModel {
		t.Fatalf("model = %q", call.Model)
	}
	if call.ImageSize != "2K" || call.AspectRatio != "1:1" {
		t.Fatalf("image config = %q %q", call.ImageSize, call.AspectRatio)
	}
	if !strings.Contains(call.Prompt, "a blue fox") || !strings.HasPrefix(call.Prompt, "Design a professional") {
		t.Fatalf("prompt = %q", call.Prompt)
	}
	if len(obs.errs) != 1 || obs.errs[0] != nil {
		t.Fatalf("observer = %v", obs.errs)
	}
}

func TestGenerateDefaultsMediaType(t *testing.T) {
	gen := &fakeGenerator{resp: &image.Response{Images: []image.InlineImage{{Data: "QUJD"}}}}
	client := newClient(t, gen, nil, nil)

	logo, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "fox"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if logo.MediaType != "image/png" {
		t.Fatalf("media type = %q, want image/png", logo.MediaType)
	}
	if gen.calls[0].ImageSize != "1K" {
		t.Fatalf("default tier = %q, want 1K", gen.calls[0].ImageSize)
	}
}

func TestGenerateWithoutImage(t *testing.T) {
	gen := &fakeGenerator{resp: &image.Response{}}
	client := newClient(t, gen, nil, nil)

	_, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "fox"})
	if !errors.Is(err, domain.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if err.Error() != "No image generated." {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestGenerateRejectsBlankPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	obs := &recordingObserver{}
	client := newClient(t, gen, nil, obs)

	_, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "   "})
	if !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("no outbound call expected, got %d", len(gen.calls))
	}
	if len(obs.errs) != 1 || !errors.Is(obs.errs[0], domain.ErrInvalidPrompt) {
		t.Fatalf("observer = %v", obs.errs)
	}
}

func TestGenerateInvalidatesOnExpiredKey(t *testing.T) {
	gen := &fakeGenerator{err: &domain.ProviderError{StatusCode: 404, Status: "NOT_FOUND", Message: "Requested entity was not found."}}
	inv := &recordingInvalidator{}
	client := newClient(t, gen, inv, nil)

	_, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "fox"})
	if !errors.Is(err, domain.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
	if len(inv.causes) != 1 {
		t.Fatalf("invalidations = %d, want 1", len(inv.causes))
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %d, no retry expected", len(gen.calls))
	}
}

func TestGenerateKeepsOtherProviderErrors(t *testing.T) {
	quota := &domain.ProviderError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
	gen := &fakeGenerator{err: quota}
	inv := &recordingInvalidator{}
	client := newClient(t, gen, inv, nil)

	_, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "fox"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr != quota {
		t.Fatalf("expected quota error, got %v", err)
	}
	if len(inv.causes) != 0 {
		t.Fatalf("gate must not be invalidated for %v", err)
	}
}

func TestNewClientRequiresGenerator(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error without generator")
	}
}
