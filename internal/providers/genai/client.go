package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
	"logomotion/internal/providers/image"
	"logomotion/internal/providers/video"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// KeySource supplies the API key for each outbound call.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource with a fixed key.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	return string(k), nil
}

// Options controls how the Gemini REST client is configured.
type Options struct {
	Keys       KeySource
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini REST API directly. It serves both the image
// (generateContent) and the video (predictLongRunning + operations) calls.
type Client struct {
	keys       KeySource
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiStatus struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

type geminiErrorResponse struct {
	Error geminiStatus `json:"error"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType,omitempty"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperation struct {
	Name     string        `json:"name"`
	Done     bool          `json:"done"`
	Error    *geminiStatus `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// NewClient constructs a Gemini client. Callers may provide a nil HTTP
// client; a reusable one with a sensible timeout will be created.
func NewClient(opts Options) (*Client, error) {
	if opts.Keys == nil {
		return nil, errors.New("genai: key source is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	return &Client{
		keys:       opts.Keys,
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// GenerateImage issues one generateContent call and returns the inline image
// parts of every candidate in order.
func (c *Client) GenerateImage(ctx context.Context, req image.Request) (*image.Response, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig: &geminiImageConfig{
				AspectRatio: req.AspectRatio,
				ImageSize:   req.ImageSize,
			},
		},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(req.Model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return nil, err
	}

	out := &image.Response{}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			out.Images = append(out.Images, image.InlineImage{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MimeType,
			})
		}
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("images", len(out.Images)).
		Msg("genai: image response received")

	return out, nil
}

// StartVideo submits a predictLongRunning job for the Veo model.
func (c *Client) StartVideo(ctx context.Context, req video.Request) (*video.Operation, error) {
	instance := veoInstance{Prompt: req.Prompt}
	if len(req.Image) > 0 {
		instance.Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image),
			MimeType:           req.ImageMIMEType,
		}
	}
	payload := veoRequest{
		Instances: []veoInstance{instance},
		Parameters: veoParameters{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
			SampleCount: req.NumberOfVideos,
		},
	}

	var op veoOperation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(req.Model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, errors.New("genai: operation name missing from response")
	}

	c.logger.Debug().Str("model", req.Model).Str("operation", op.Name).Msg("genai: video job submitted")
	return op.toOperation(), nil
}

// PollVideo refreshes the status of a previously submitted job.
func (c *Client) PollVideo(ctx context.Context, op *video.Operation) (*video.Operation, error) {
	if op == nil || op.Name == "" {
		return nil, errors.New("genai: operation name is required")
	}
	var refreshed veoOperation
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(op.Name, "/"), nil, &refreshed); err != nil {
		return nil, err
	}
	if refreshed.Name == "" {
		refreshed.Name = op.Name
	}
	return refreshed.toOperation(), nil
}

// DownloadVideo fetches the bytes behind a generated video URI, appending
// the active key as a query parameter.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", decodeError(resp)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return err
	}
	if key == "" {
		return domain.ErrNoCredential
	}
	q := req.URL.Query()
	q.Set("key", key)
	req.URL.RawQuery = q.Encode()
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	perr := &domain.ProviderError{StatusCode: resp.StatusCode}
	var apiErr geminiErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		perr.Status = apiErr.Error.Status
		perr.Message = apiErr.Error.Message
		return perr
	}
	perr.Message = strings.TrimSpace(string(data))
	return perr
}

func (o veoOperation) toOperation() *video.Operation {
	op := &video.Operation{Name: o.Name, Done: o.Done}
	if o.Error != nil {
		op.Error = &video.OperationError{
			Code:    o.Error.Code,
			Status:  o.Error.Status,
			Message: o.Error.Message,
		}
	}
	if o.Response != nil {
		for _, sample := range o.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video.URI != "" {
				op.VideoURIs = append(op.VideoURIs, sample.Video.URI)
			}
		}
	}
	return op
}

var (
	_ image.Generator = (*Client)(nil)
	_ video.Generator = (*Client)(nil)
)
