// Package genaisdk implements the image and video providers on top of the
// official google.golang.org/genai SDK.
package genaisdk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"logomotion/internal/domain"
	"logomotion/internal/infra"
	"logomotion/internal/providers/image"
	"logomotion/internal/providers/video"
)

// KeySource supplies the API key for each outbound call.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

type Options struct {
	Keys       KeySource
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client keeps one SDK client per API key. A new key selected through the
// credential gate transparently gets a fresh SDK client.
type Client struct {
	keys       KeySource
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger

	mu     sync.RWMutex
	key    string
	client *genai.Client
	newSDK func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error)
}

func NewClient(opts Options) (*Client, error) {
	if opts.Keys == nil {
		return nil, errors.New("genaisdk: key source is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		keys:       opts.Keys,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: httpClient,
		logger:     logger,
		newSDK:     genai.NewClient,
	}, nil
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, string, error) {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, "", err
	}
	if key == "" {
		return nil, "", domain.ErrNoCredential
	}

	c.mu.RLock()
	if c.client != nil && c.key == key {
		defer c.mu.RUnlock()
		return c.client, key, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.key == key {
		return c.client, key, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := c.newSDK(ctx, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("genaisdk: create client: %w", err)
	}
	c.client = client
	c.key = key
	c.logger.Debug().Msg("genaisdk: client created for selected key")
	return client, key, nil
}

func (c *Client) GenerateImage(ctx context.Context, req image.Request) (*image.Response, error) {
	client, _, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   req.ImageSize,
		},
	})
	if err != nil {
		return nil, translateAPIError(err)
	}
	out := imagesFromResponse(resp)
	c.logger.Debug().Str("model", req.Model).Int("images", len(out.Images)).Msg("genaisdk: image response received")
	return out, nil
}

func (c *Client) StartVideo(ctx context.Context, req video.Request) (*video.Operation, error) {
	client, _, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}
	var source *genai.Image
	if len(req.Image) > 0 {
		source = &genai.Image{ImageBytes: req.Image, MIMEType: req.ImageMIMEType}
	}
	op, err := client.Models.GenerateVideos(ctx, req.Model, req.Prompt, source, &genai.GenerateVideosConfig{
		NumberOfVideos: int32(req.NumberOfVideos),
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, translateAPIError(err)
	}
	if op == nil || op.Name == "" {
		return nil, errors.New("genaisdk: operation name missing from response")
	}
	c.logger.Debug().Str("model", req.Model).Str("operation", op.Name).Msg("genaisdk: video job submitted")
	return operationFromSDK(op), nil
}

func (c *Client) PollVideo(ctx context.Context, op *video.Operation) (*video.Operation, error) {
	if op == nil || op.Name == "" {
		return nil, errors.New("genaisdk: operation name is required")
	}
	client, _, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}
	refreshed, err := client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, translateAPIError(err)
	}
	out := operationFromSDK(refreshed)
	if out.Name == "" {
		out.Name = op.Name
	}
	return out, nil
}

// DownloadVideo fetches the generated file over plain HTTP with the key as a
// query parameter, the same way the REST backend does.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, string, error) {
	_, key, err := c.sdk(ctx)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", key)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", &domain.ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func imagesFromResponse(resp *genai.GenerateContentResponse) *image.Response {
	out := &image.Response{}
	if resp == nil {
		return out
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			out.Images = append(out.Images, image.InlineImage{
				Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
				MIMEType: part.InlineData.MIMEType,
			})
		}
	}
	return out
}

func operationFromSDK(op *genai.GenerateVideosOperation) *video.Operation {
	if op == nil {
		return &video.Operation{}
	}
	out := &video.Operation{Name: op.Name, Done: op.Done}
	if len(op.Error) > 0 {
		out.Error = operationError(op.Error)
	}
	if op.Response != nil {
		for _, generated := range op.Response.GeneratedVideos {
			if generated == nil || generated.Video == nil || generated.Video.URI == "" {
				continue
			}
			out.VideoURIs = append(out.VideoURIs, generated.Video.URI)
		}
	}
	return out
}

func operationError(raw map[string]any) *video.OperationError {
	out := &video.OperationError{}
	if msg, ok := raw["message"].(string); ok {
		out.Message = msg
	}
	if status, ok := raw["status"].(string); ok {
		out.Status = status
	}
	switch code := raw["code"].(type) {
	case float64:
		out.Code = int(code)
	case int:
		out.Code = code
	case int32:
		out.Code = int(code)
	case int64:
		out.Code = int(code)
	}
	if out.Message == "" {
		out.Message = fmt.Sprint(raw)
	}
	return out
}

// translateAPIError converts SDK errors to the provider error shared with
// the REST backend so that credential expiry is recognised in one place.
func translateAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &domain.ProviderError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}

var (
	_ image.Generator = (*Client)(nil)
	_ video.Generator = (*Client)(nil)
)
