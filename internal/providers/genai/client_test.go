package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logomotion/internal/domain"
	"logomotion/internal/providers/image"
	"logomotion/internal/providers/video"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(Options{
		Keys:       StaticKey("secret"),
		BaseURL:    "https://gemini.test/v1beta/",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientRequiresKeySource(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error without key source")
	}
}

func TestGenerateImagePayloadAndParts(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-3-pro-image-preview:generateContent" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Fatalf("key = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"QUJD"}},
			{"inlineData":{"mimeType":"image/jpeg","data":"REVG"}}
		]}}]}`), nil
	})

	resp, err := client.GenerateImage(context.Background(), image.Request{
		Model:       "gemini-3-pro-image-preview",
		Prompt:      "a fox",
		ImageSize:   "2K",
		AspectRatio: "1:1",
	})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(resp.Images))
	}
	if resp.Images[0].Data != "QUJD" || resp.Images[0].MIMEType != "image/png" {
		t.Fatalf("first image = %+v", resp.Images[0])
	}

	cfg := captured["generationConfig"].(map[string]any)
	imageCfg := cfg["imageConfig"].(map[string]any)
	if imageCfg["imageSize"] != "2K" || imageCfg["aspectRatio"] != "1:1" {
		t.Fatalf("imageConfig = %#v", imageCfg)
	}
	modalities := cfg["responseModalities"].([]any)
	if len(modalities) != 1 || modalities[0] != "IMAGE" {
		t.Fatalf("responseModalities = %#v", modalities)
	}
	contents := captured["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if parts[0].(map[string]any)["text"] != "a fox" {
		t.Fatalf("prompt part = %#v", parts[0])
	}
}

func TestGenerateImageProviderError(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`), nil
	})

	_, err := client.GenerateImage(context.Background(), image.Request{Model: "m", Prompt: "p"})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusNotFound || perr.Status != "NOT_FOUND" {
		t.Fatalf("provider error = %+v", perr)
	}
	if !errors.Is(domain.TranslateProviderError(err), domain.ErrCredentialExpired) {
		t.Fatal("expected credential expiry after translation")
	}
}

func TestGenerateImageWithoutKey(t *testing.T) {
	client, err := NewClient(Options{
		Keys: StaticKey(""),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			t.Error("no request expected without a key")
			return nil, errors.New("unexpected request")
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := client.GenerateImage(context.Background(), image.Request{Model: "m"}); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestStartVideoPayload(t *testing.T) {
	var captured veoRequest
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1beta/models/veo-3.1-fast-generate-preview:predictLongRunning" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"name":"models/veo/operations/abc"}`), nil
	})

	op, err := client.StartVideo(context.Background(), video.Request{
		Model:          "veo-3.1-fast-generate-preview",
		Prompt:         "Cinematic motion: spin",
		Image:          []byte("png-bytes"),
		ImageMIMEType:  "image/png",
		AspectRatio:    "9:16",
		Resolution:     "720p",
		NumberOfVideos: 1,
	})
	if err != nil {
		t.Fatalf("StartVideo returned error: %v", err)
	}
	if op.Name != "models/veo/operations/abc" || op.Done {
		t.Fatalf("operation = %+v", op)
	}
	if len(captured.Instances) != 1 {
		t.Fatalf("instances = %d", len(captured.Instances))
	}
	inst := captured.Instances[0]
	if inst.Prompt != "Cinematic motion: spin" {
		t.Fatalf("prompt = %q", inst.Prompt)
	}
	if inst.Image == nil || inst.Image.BytesBase64Encoded != base64.StdEncoding.EncodeToString([]byte("png-bytes")) {
		t.Fatalf("image = %+v", inst.Image)
	}
	if captured.Parameters.AspectRatio != "9:16" || captured.Parameters.Resolution != "720p" || captured.Parameters.SampleCount != 1 {
		t.Fatalf("parameters = %+v", captured.Parameters)
	}
}

func TestPollVideoParsesStates(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		done     bool
		errMsg   string
		videoURI string
	}{
		{"pending", `{"name":"operations/1","done":false}`, false, "", ""},
		{"failed", `{"name":"operations/1","done":true,"error":{"code":8,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, true, "quota exceeded", ""},
		{"succeeded", `{"name":"operations/1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files.test/v.mp4"}}]}}}`, true, "", "https://files.test/v.mp4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1beta/operations/1" {
					t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				return jsonResponse(http.StatusOK, tc.body), nil
			})
			op, err := client.PollVideo(context.Background(), &video.Operation{Name: "operations/1"})
			if err != nil {
				t.Fatalf("PollVideo returned error: %v", err)
			}
			if op.Done != tc.done {
				t.Fatalf("done = %v, want %v", op.Done, tc.done)
			}
			if tc.errMsg != "" && (op.Error == nil || op.Error.Message != tc.errMsg) {
				t.Fatalf("error = %+v, want %q", op.Error, tc.errMsg)
			}
			if tc.videoURI != "" && (len(op.VideoURIs) != 1 || op.VideoURIs[0] != tc.videoURI) {
				t.Fatalf("uris = %v", op.VideoURIs)
			}
		})
	}
}

func TestDownloadVideoAppendsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("alt") != "media" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	client, err := NewClient(Options{Keys: StaticKey("secret"), HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	data, mime, err := client.DownloadVideo(context.Background(), server.URL+"/files/v.mp4?alt=media")
	if err != nil {
		t.Fatalf("DownloadVideo returned error: %v", err)
	}
	if string(data) != "mp4-bytes" || mime != "video/mp4" {
		t.Fatalf("download = %q %q", data, mime)
	}
}

func TestDownloadVideoNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	client, err := NewClient(Options{Keys: StaticKey("secret"), HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, _, err = client.DownloadVideo(context.Background(), server.URL+"/files/v.mp4")
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusGone {
		t.Fatalf("expected ProviderError 410, got %v", err)
	}
}
