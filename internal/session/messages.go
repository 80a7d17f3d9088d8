package session

import (
	"errors"

	"logomotion/internal/domain"
)

// Order matters: a download failure may wrap a provider cause that also
// matches a credential sentinel, and the download text wins.
var userFacing = []error{
	domain.ErrDownloadFailed,
	domain.ErrCredentialExpired,
	domain.ErrNoCredential,
	domain.ErrInvalidPrompt,
	domain.ErrNoImage,
	domain.ErrNoVideoURI,
	domain.ErrJobTimedOut,
	domain.ErrNoLogo,
	domain.ErrOperationInFlight,
	domain.ErrUnsupportedOption,
}

// Message returns the text shown next to the control that triggered err.
// Known failures use their fixed wording; provider failures keep the
// provider message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var gerr *domain.GenerationError
	if errors.As(err, &gerr) {
		return gerr.Error()
	}
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return err.Error()
}
