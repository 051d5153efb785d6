// Package prediction submits image jobs to a Replicate-style predictions API.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.replicate.com/v1"
	defaultTimeout = 60 * time.Second
)

// Webhook events forwarded to the prediction webhook.
var webhookEvents = []string{"completed"}

// RateLimitError reports an HTTP 429 from the provider. RetryAfter is zero
// when the provider gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("prediction: rate limited, retry after %s: %s", e.RetryAfter, e.Message)
	}
	return "prediction: rate limited: " + e.Message
}

// APIError is any other non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction: http %d: %s", e.StatusCode, e.Message)
}

// Request describes one prediction. Set Version for a trained model version
// or Model ("owner/name") for an official model endpoint.
type Request struct {
	Version string
	Model   string
	Input   map[string]any
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIToken   string
	WebhookURL string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// Client talks to the predictions API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	webhookURL string
	logger     zerolog.Logger
}

// NewClient constructs a Client with defaults applied.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIToken),
		webhookURL: strings.TrimSpace(opts.WebhookURL),
		logger:     logger,
	}
}

type createPayload struct {
	Version             string         `json:"version,omitempty"`
	Input               map[string]any `json:"input"`
	Webhook             string         `json:"webhook,omitempty"`
	WebhookEventsFilter []string       `json:"webhook_events_filter,omitempty"`
}

type predictionResponse struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Error      any     `json:"error"`
	Detail     string  `json:"detail"`
	Title      string  `json:"title"`
	RetryAfter float64 `json:"retry_after"`
}

// Submit creates a prediction and returns its id.
func (c *Client) Submit(ctx context.Context, r Request) (string, error) {
	if c == nil {
		return "", errors.New("prediction client not configured")
	}
	if c.token == "" {
		return "", errors.New("prediction: API token is missing")
	}
	endpoint, payload, err := c.route(r)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var out predictionResponse
	decodeErr := json.Unmarshal(raw, &out)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		rl := &RateLimitError{Message: firstNonEmpty(out.Detail, out.Title, strings.TrimSpace(string(raw)))}
		if out.RetryAfter > 0 {
			rl.RetryAfter = time.Duration(out.RetryAfter * float64(time.Second))
		} else {
			rl.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return "", rl
	case resp.StatusCode >= http.StatusBadRequest:
		return "", &APIError{StatusCode: resp.StatusCode, Message: firstNonEmpty(out.Detail, out.Title, errorText(out.Error), http.StatusText(resp.StatusCode))}
	case decodeErr != nil:
		return "", fmt.Errorf("prediction: decode response: %w", decodeErr)
	}
	if msg := errorText(out.Error); msg != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("prediction: missing prediction id")
	}
	c.logger.Debug().Str("prediction_id", out.ID).Str("status", out.Status).Str("endpoint", endpoint).Msg("prediction: submitted")
	return out.ID, nil
}

func (c *Client) route(r Request) (string, createPayload, error) {
	payload := createPayload{Input: r.Input}
	if c.webhookURL != "" {
		payload.Webhook = c.webhookURL
		payload.WebhookEventsFilter = webhookEvents
	}
	if model := strings.TrimSpace(r.Model); model != "" {
		owner, name, ok := strings.Cut(model, "/")
		if !ok || owner == "" || name == "" {
			return "", createPayload{}, fmt.Errorf("prediction: model %q must be owner/name", model)
		}
		return c.baseURL + "/models/" + owner + "/" + name + "/predictions", payload, nil
	}
	version := strings.TrimSpace(r.Version)
	if version == "" {
		return "", createPayload{}, errors.New("prediction: version or model required")
	}
	// "owner/name:version" references carry the version after the colon.
	if _, v, ok := strings.Cut(version, ":"); ok {
		version = v
	}
	payload.Version = version
	return c.baseURL + "/predictions", payload, nil
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func errorText(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(e)
	default:
		b, _ := json.Marshal(e)
		return string(b)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
