package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"logomotion/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: revoked", domain.ErrCredentialExpired), http.StatusUnauthorized, codeCredentialExpired},
		{domain.ErrNoCredential, http.StatusUnauthorized, codeCredentialRequired},
		{domain.ErrInvalidPrompt, http.StatusBadRequest, codeInvalidInput},
		{domain.ErrOperationInFlight, http.StatusConflict, codeBusy},
		{domain.ErrNoLogo, http.StatusConflict, codeNoLogo},
		{domain.ErrCoordinatorClosed, http.StatusNotFound, codeNotFound},
		{domain.ErrJobTimedOut, http.StatusGatewayTimeout, codeTimeout},
		{fmt.Errorf("%w: %w", domain.ErrDownloadFailed, errors.New("403")), http.StatusBadGateway, codeGenerationFailed},
		{fmt.Errorf("%w: %w", domain.ErrDownloadFailed, domain.ErrCredentialExpired), http.StatusBadGateway, codeGenerationFailed},
		{&domain.GenerationError{Stage: domain.StageVideo, Message: "blocked"}, http.StatusBadGateway, codeGenerationFailed},
		{&domain.ProviderError{StatusCode: 500}, http.StatusBadGateway, codeGenerationFailed},
		{context.Canceled, http.StatusConflict, codeCancelled},
		{errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("classify(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
		}
	}
}

func TestLocalize(t *testing.T) {
	if got := localize("en", codeBusy); got != "Another generation is still running." {
		t.Fatalf("en = %q", got)
	}
	if got := localize("id", codeBusy); got != "Pembuatan lain masih berjalan." {
		t.Fatalf("id = %q", got)
	}
	if got := localize("", codeNoLogo); got != "Generate a logo first." {
		t.Fatalf("fallback = %q", got)
	}
	for code := range messages {
		if localize("id", code) == localize("en", code) {
			t.Errorf("code %s has no Indonesian text", code)
		}
	}
}
