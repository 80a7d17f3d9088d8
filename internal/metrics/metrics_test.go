package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"logomotion/internal/domain"
)

func newTestRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	return NewWithRegistry("test", reg, reg)
}

func TestLogoGeneratedCountsByOutcome(t *testing.T) {
	r := newTestRecorder()
	r.LogoGenerated(domain.Tier2K, nil)
	r.LogoGenerated(domain.Tier2K, nil)
	r.LogoGenerated("", domain.ErrNoImage)

	if got := testutil.ToFloat64(r.logosTotal.WithLabelValues("2K", "ok")); got != 2 {
		t.Fatalf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.logosTotal.WithLabelValues("1K", "no_output")); got != 1 {
		t.Fatalf("no_output count = %v, want 1", got)
	}
}

func TestAnimationAndPollMetrics(t *testing.T) {
	r := newTestRecorder()
	r.VideoPolled()
	r.VideoPolled()
	r.VideoPolled()
	r.AnimationFinished(3, nil)
	r.AnimationFinished(0, &domain.GenerationError{Stage: domain.StageVideo, Message: "quota exceeded"})

	if got := testutil.ToFloat64(r.pollsTotal); got != 3 {
		t.Fatalf("polls = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.animationsTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok = %v", got)
	}
	if got := testutil.ToFloat64(r.animationsTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed = %v", got)
	}
	if got := testutil.CollectAndCount(r.pollsPerJob); got != 1 {
		t.Fatalf("histogram series = %d", got)
	}
}

func TestSessionsActiveGauge(t *testing.T) {
	r := newTestRecorder()
	r.SessionsActive(4)
	r.SessionsActive(2)
	if got := testutil.ToFloat64(r.sessionsActive); got != 2 {
		t.Fatalf("sessions = %v, want 2", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := newTestRecorder()
	r.ObserveHTTP(http.MethodGet, "/v1/healthz", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_http_requests_total{method="GET",route="/v1/healthz",status="200"} 1`) {
		t.Fatalf("metrics body missing request counter:\n%s", rec.Body.String())
	}
}

func TestOutcome(t *testing.T) {
	tests := map[string]error{
		"ok":         nil,
		"cancelled":  context.Canceled,
		"credential": fmt.Errorf("x: %w", domain.ErrCredentialExpired),
		"invalid":    domain.ErrInvalidPrompt,
		"no_output":  domain.ErrNoVideoURI,
		"timeout":    domain.ErrJobTimedOut,
		"download":   fmt.Errorf("%w: %w", domain.ErrDownloadFailed, errors.New("403")),
		"failed":     errors.New("boom"),
	}
	for want, err := range tests {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
