package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoCredential      = errors.New("no usable credential configured")
	ErrCredentialExpired = errors.New("credential rejected by provider, select a key again")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrNoImage           = errors.New("No image generated.")
	ErrNoVideoURI        = errors.New("No video URI returned.")
	ErrDownloadFailed    = errors.New("Failed to download generated video.")
	ErrJobTimedOut       = errors.New("video generation timed out")
	ErrNoLogo            = errors.New("no logo to animate")
	ErrOperationInFlight = errors.New("another generation is in progress")
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedOption = errors.New("unsupported option")
	ErrCoordinatorClosed = errors.New("session closed")
)

// Stage names the step of the flow that produced a GenerationError.
type Stage string

const (
	StageImage Stage = "image"
	StageVideo Stage = "video"
)

// GenerationError carries a failure reported by the provider for a specific
// stage. Message is the provider text when there is one.
type GenerationError struct {
	Stage   Stage
	Message string
}

func (e *GenerationError) Error() string {
	if e.Stage == StageVideo {
		return fmt.Sprintf("Video generation failed: %s", e.Message)
	}
	return fmt.Sprintf("Image generation failed: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return ErrGenerationFailed
}

// ProviderError is returned by provider backends for non-success responses.
type ProviderError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *ProviderError) Error() string {
	switch {
	case e.Message != "" && e.Status != "":
		return fmt.Sprintf("provider status %d (%s): %s", e.StatusCode, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("provider status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("provider status %d", e.StatusCode)
	}
}

const entityNotFoundText = "requested entity was not found"

// TranslateProviderError is the only place that decides whether a provider
// failure means the credential is no longer valid. A 401 or UNAUTHENTICATED
// status always counts. NOT_FOUND alone does not, since a mistyped model
// name produces it too; only the "Requested entity was not found" text marks
// a key that has been revoked. Other errors are returned unchanged.
func TranslateProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCredentialExpired) {
		return err
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr.StatusCode == http.StatusUnauthorized || perr.Status == "UNAUTHENTICATED" {
			return fmt.Errorf("%w: %s", ErrCredentialExpired, perr.Message)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), entityNotFoundText) {
		return fmt.Errorf("%w: %s", ErrCredentialExpired, err.Error())
	}
	return err
}
