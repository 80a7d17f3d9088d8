package genaisdk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/genai"

	"logomotion/internal/domain"
)

type staticKey string

func (k staticKey) APIKey(context.Context) (string, error) { return string(k), nil }

func TestImagesFromResponseKeepsInlineParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "caption"},
				{InlineData: &genai.Blob{Data: []byte("png"), MIMEType: "image/png"}},
			}}},
			nil,
			{Content: nil},
		},
	}
	out := imagesFromResponse(resp)
	if len(out.Images) != 1 {
		t.Fatalf("images = %d, want 1", len(out.Images))
	}
	if out.Images[0].Data != base64.StdEncoding.EncodeToString([]byte("png")) {
		t.Fatalf("data = %q", out.Images[0].Data)
	}
	if out.Images[0].MIMEType != "image/png" {
		t.Fatalf("mime = %q", out.Images[0].MIMEType)
	}
	if got := imagesFromResponse(nil); len(got.Images) != 0 {
		t.Fatalf("nil response produced images")
	}
}

func TestOperationFromSDK(t *testing.T) {
	op := operationFromSDK(&genai.GenerateVideosOperation{
		Name: "operations/7",
		Done: true,
		Error: map[string]any{
			"code":    float64(8),
			"message": "quota exceeded",
			"status":  "RESOURCE_EXHAUSTED",
		},
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{
				{Video: &genai.Video{URI: "https://files.test/a.mp4"}},
				{Video: nil},
			},
		},
	})
	if op.Name != "operations/7" || !op.Done {
		t.Fatalf("operation = %+v", op)
	}
	if op.Error == nil || op.Error.Code != 8 || op.Error.Message != "quota exceeded" || op.Error.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("error = %+v", op.Error)
	}
	if len(op.VideoURIs) != 1 || op.VideoURIs[0] != "https://files.test/a.mp4" {
		t.Fatalf("uris = %v", op.VideoURIs)
	}
}

func TestTranslateAPIError(t *testing.T) {
	err := translateAPIError(fmt.Errorf("call: %w", genai.APIError{Code: 404, Status: "NOT_FOUND", Message: "Requested entity was not found."}))
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != 404 || perr.Status != "NOT_FOUND" {
		t.Fatalf("provider error = %+v", perr)
	}
	if !errors.Is(domain.TranslateProviderError(err), domain.ErrCredentialExpired) {
		t.Fatal("expected credential expiry")
	}

	plain := errors.New("dial tcp: refused")
	if got := translateAPIError(plain); got != plain {
		t.Fatalf("plain errors must pass through, got %v", got)
	}
}

func TestClientRequiresKey(t *testing.T) {
	client, err := NewClient(Options{Keys: staticKey("")})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, _, err := client.DownloadVideo(context.Background(), "https://files.test/a.mp4"); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestClientReusesSDKClientPerKey(t *testing.T) {
	keys := &switchingKey{key: "one"}
	client, err := NewClient(Options{Keys: keys})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	created := 0
	client.newSDK = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
		created++
		if cfg.APIKey != keys.key {
			t.Fatalf("APIKey = %q, want %q", cfg.APIKey, keys.key)
		}
		if cfg.Backend != genai.BackendGeminiAPI {
			t.Fatalf("Backend = %v", cfg.Backend)
		}
		return &genai.Client{}, nil
	}

	for i := 0; i < 3; i++ {
		if _, _, err := client.sdk(context.Background()); err != nil {
			t.Fatalf("sdk returned error: %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	keys.key = "two"
	if _, _, err := client.sdk(context.Background()); err != nil {
		t.Fatalf("sdk returned error: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d after key change, want 2", created)
	}
}

func TestDownloadVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4"))
	}))
	defer server.Close()

	client, err := NewClient(Options{Keys: staticKey("k"), HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	client.newSDK = func(context.Context, *genai.ClientConfig) (*genai.Client, error) {
		return &genai.Client{}, nil
	}
	data, mime, err := client.DownloadVideo(context.Background(), server.URL+"/v.mp4")
	if err != nil {
		t.Fatalf("DownloadVideo returned error: %v", err)
	}
	if string(data) != "mp4" || mime != "video/mp4" {
		t.Fatalf("download = %q %q", data, mime)
	}
}

type switchingKey struct {
	key string
}

func (s *switchingKey) APIKey(context.Context) (string, error) { return s.key, nil }
