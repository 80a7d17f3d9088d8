// Package handlers serves the two-step logo flow over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"logomotion/internal/credentials"
	"logomotion/internal/infra"
	"logomotion/internal/session"
	"logomotion/internal/storage"
)

const maxBodyBytes = 64 << 10

type App struct {
	Sessions *session.Registry
	Gate     *credentials.Gate
	Blobs    storage.BlobStore
	Logger   *infra.Logger
}

func NewApp(sessions *session.Registry, gate *credentials.Gate, blobs storage.BlobStore, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Sessions: sessions, Gate: gate, Blobs: blobs, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return false
	}
	return true
}
