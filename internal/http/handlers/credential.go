package handlers

import (
	"net/http"
	"strings"

	"logomotion/internal/credentials"
	"logomotion/internal/middleware"
)

// BillingURL documents the paid key requirement shown with the prompt.
const BillingURL = "https://ai.google.dev/gemini-api/docs/billing"

type credentialResponse struct {
	State      credentials.State `json:"state"`
	Ready      bool              `json:"ready"`
	BillingURL string            `json:"billing_url"`
	Reason     string            `json:"reason,omitempty"`
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

func (a *App) credentialView() credentialResponse {
	resp := credentialResponse{
		State:      a.Gate.State(),
		Ready:      a.Gate.Ready(),
		BillingURL: BillingURL,
	}
	if cause := a.Gate.Cause(); cause != nil {
		resp.Reason = cause.Error()
	}
	return resp
}

// CredentialStatus reports the gate state, running the one-time capability
// check when it has not happened yet.
func (a *App) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	if a.Gate.State() == credentials.StateChecking {
		a.Gate.Check(r.Context())
	}
	a.json(w, http.StatusOK, a.credentialView())
}

// CredentialSelect registers the submitted key and marks the gate ready.
// The key is process-wide: every session uses it from the next call on.
func (a *App) CredentialSelect(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !a.decode(w, r, &req) {
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		a.error(w, r, http.StatusBadRequest, codeInvalidInput, "api_key required")
		return
	}
	previous := a.Gate.State()
	if err := a.Gate.Select(r.Context(), credentials.StaticKey(key)); err != nil {
		a.Logger.Error().Err(err).Msg("credential selection failed")
		a.error(w, r, http.StatusInternalServerError, codeInternal, "")
		return
	}
	a.Logger.Warn().
		Str("previous_state", string(previous)).
		Bool("replaced", previous == credentials.StateReady).
		Str("client_ip", middleware.ClientIP(r)).
		Msg("process-wide API key changed")
	a.json(w, http.StatusOK, a.credentialView())
}
