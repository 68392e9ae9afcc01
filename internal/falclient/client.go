// Package falclient executes prepared generation requests against the fal.ai
// API. It owns the retry surface: a primary request format followed by the
// model's alternate formats, tried strictly in declared order. Alternates are
// never raced in parallel; upstream quota is the scarce resource.
package falclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/handler"
	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/media"
	"github.com/rpriscu/ai-image-generator/internal/registry"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("falclient: api key is required")

// Options configures the fal.ai client.
type Options struct {
	APIKey       string
	BaseURL      string
	QueueBaseURL string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	ImageTimeout time.Duration
	VideoTimeout time.Duration
	PollInterval time.Duration
	MaxDimension int
}

// Client performs HTTP calls to the fal.ai generation endpoints.
type Client struct {
	apiKey       string
	baseURL      string
	queueBaseURL string
	httpClient   *http.Client
	logger       *infra.Logger
	imageTimeout time.Duration
	videoTimeout time.Duration
	pollInterval time.Duration
	maxDimension int
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://fal.run"
	}
	queueBaseURL := strings.TrimRight(opts.QueueBaseURL, "/")
	if queueBaseURL == "" {
		queueBaseURL = "https://queue.fal.run"
	}
	imageTimeout := opts.ImageTimeout
	if imageTimeout <= 0 {
		imageTimeout = 30 * time.Second
	}
	videoTimeout := opts.VideoTimeout
	if videoTimeout <= 0 {
		videoTimeout = 60 * time.Second
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	maxDimension := opts.MaxDimension
	if maxDimension <= 0 {
		maxDimension = media.DefaultMaxDimension
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		queueBaseURL: queueBaseURL,
		httpClient:   httpClient,
		logger:       logger,
		imageTimeout: imageTimeout,
		videoTimeout: videoTimeout,
		pollInterval: pollInterval,
		maxDimension: maxDimension,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Generate runs one request through the strategy selected by the model
// config: direct queue client, plain REST, or REST with alternate-format
// fallback. Alternate formats are only consulted for models flagged for REST
// fallback. The total number of upstream attempts is bounded by one primary
// call plus one per alternate format.
func (c *Client) Generate(ctx context.Context, h handler.Handler, prep handler.PreparedRequest) ([]domain.Result, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	cfg := h.Config()

	payload, imageURI, maskURI, err := c.encode(cfg, prep)
	if err != nil {
		return nil, err
	}
	timeout := c.timeoutFor(cfg)

	if cfg.UseDirectClient {
		results, err := c.generateViaQueue(ctx, h, cfg, payload, timeout)
		if err == nil {
			return results, nil
		}
		c.logger.Warn().Err(err).Str("model", cfg.ID).Msg("direct client failed, falling back to rest")
	}

	var lastErr error
	attempts := 0

	results, err := c.attempt(ctx, h, cfg.Endpoint, payload, timeout)
	attempts++
	if err == nil {
		return results, nil
	}
	lastErr = err
	c.logger.Info().Err(err).Str("model", cfg.ID).Msg("primary request failed")

	if cfg.UseRESTFallback {
		prompt, _ := prep.Payload["prompt"].(string)
		for _, alt := range cfg.AlternateFormats {
			altPayload := renderAlternate(alt, prompt, imageURI, maskURI)
			c.logger.Info().Str("model", cfg.ID).Str("endpoint", alt.Endpoint).Msg("trying alternate format")
			results, err = c.attempt(ctx, h, alt.Endpoint, altPayload, timeout)
			attempts++
			if err == nil {
				return results, nil
			}
			lastErr = err
		}
	}

	return nil, &domain.ExhaustedError{Attempts: attempts, Last: lastErr}
}

// encode performs the media embedding step. The image is capped at the
// client's max dimension; the mask is forced to the encoded image's exact
// dimensions. Models flagged with ReferenceAdapter receive the image as an
// ip_adapters entry instead of a flat image_url field.
func (c *Client) encode(cfg registry.ModelConfig, prep handler.PreparedRequest) (handler.Payload, string, string, error) {
	payload := make(handler.Payload, len(prep.Payload)+2)
	for k, v := range prep.Payload {
		payload[k] = v
	}

	var imageURI, maskURI string
	var width, height int
	if prep.Image != nil {
		uri, w, h, err := media.ProcessImage(prep.Image, c.maxDimension)
		if err != nil {
			return nil, "", "", err
		}
		imageURI = uri
		width, height = w, h
		if cfg.ReferenceAdapter {
			payload["ip_adapters"] = referenceAdapter(uri)
		} else {
			payload["image_url"] = uri
		}
	}
	if prep.Mask != nil {
		uri, err := media.ProcessMask(prep.Mask, width, height)
		if err != nil {
			return nil, "", "", err
		}
		maskURI = uri
		payload["mask_url"] = uri
	}
	return payload, imageURI, maskURI, nil
}

func referenceAdapter(imageURI string) []any {
	return []any{
		map[string]any{
			"image_url": imageURI,
			"scale":     1.0,
		},
	}
}

func (c *Client) timeoutFor(cfg registry.ModelConfig) time.Duration {
	if cfg.OutputKind == domain.KindVideo || cfg.Slow {
		return c.videoTimeout
	}
	return c.imageTimeout
}

// attempt sends one request and normalizes the body through the handler. A
// shape the handler cannot parse counts as a failed attempt so the fallback
// chain keeps going.
func (c *Client) attempt(ctx context.Context, h handler.Handler, endpoint string, payload handler.Payload, timeout time.Duration) ([]domain.Result, error) {
	raw, err := c.send(ctx, c.baseURL, endpoint, payload, timeout)
	if err != nil {
		return nil, err
	}
	return h.ProcessResponse(raw)
}

func (c *Client) send(ctx context.Context, base, endpoint string, payload any, timeout time.Duration) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("falclient: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+strings.TrimLeft(endpoint, "/"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("falclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falclient: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("falclient: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseErrorBody(resp.StatusCode, raw)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("falclient: decode response: %w", err)
	}
	return decoded, nil
}

// parseErrorBody pulls a human-readable message out of the provider's error
// envelope when one is present.
func parseErrorBody(status int, raw []byte) *domain.UpstreamError {
	message := strings.TrimSpace(string(raw))
	var envelope struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Error != "":
			message = envelope.Error
		case envelope.Detail != nil:
			message = detailMessage(envelope.Detail, message)
		}
	}
	return &domain.UpstreamError{Status: status, Body: message}
}

func detailMessage(detail any, fallback string) string {
	switch v := detail.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if entry, ok := v[0].(map[string]any); ok {
				if msg, ok := entry["msg"].(string); ok {
					return msg
				}
			}
		}
	}
	return fallback
}

// renderAlternate substitutes the template placeholders into one alternate
// payload. Only top-level string values are templated.
func renderAlternate(alt registry.AlternateFormat, prompt, imageURI, maskURI string) handler.Payload {
	payload := make(handler.Payload, len(alt.Payload))
	for key, value := range alt.Payload {
		if s, ok := value.(string); ok {
			s = strings.ReplaceAll(s, "{prompt}", prompt)
			s = strings.ReplaceAll(s, "{image_url}", imageURI)
			s = strings.ReplaceAll(s, "{mask_url}", maskURI)
			payload[key] = s
			continue
		}
		payload[key] = value
	}
	return payload
}
