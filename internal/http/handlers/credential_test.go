package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"logomotion/internal/credentials"
)

func TestCredentialSelectLogsReplacement(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	gate := credentials.NewGate(credentials.NewMemoryCapability("old-key"), nil)
	if state := gate.Check(context.Background()); state != credentials.StateReady {
		t.Fatalf("gate state = %s, want ready", state)
	}
	app := NewApp(nil, gate, nil, &logger)

	req := httptest.NewRequest(http.MethodPost, "/v1/credential", strings.NewReader(`{"api_key":"new-key"}`))
	rec := httptest.NewRecorder()
	app.CredentialSelect(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("level = %v, want warn", entry["level"])
	}
	if entry["replaced"] != true || entry["previous_state"] != string(credentials.StateReady) {
		t.Fatalf("log entry = %v", entry)
	}
	if strings.Contains(buf.String(), "new-key") {
		t.Fatal("the key itself must never be logged")
	}
}
