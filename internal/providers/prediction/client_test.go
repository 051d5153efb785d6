package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSubmitVersion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		var payload createPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Version != "abc123" {
			t.Fatalf("version = %q, want abc123", payload.Version)
		}
		if payload.Input["prompt"] != "hello" {
			t.Fatalf("input = %v", payload.Input)
		}
		if payload.Webhook != "https://hooks.example.com/p?token=x" || len(payload.WebhookEventsFilter) != 1 {
			t.Fatalf("webhook = %q %v", payload.Webhook, payload.WebhookEventsFilter)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL + "/", APIToken: "test-token", WebhookURL: "https://hooks.example.com/p?token=x"})
	id, err := c.Submit(context.Background(), Request{Version: "owner/model:abc123", Input: map[string]any{"prompt": "hello"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "pred-1" {
		t.Fatalf("id = %q, want pred-1", id)
	}
}

func TestSubmitModelEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/google/nano-banana-pro/predictions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload createPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Version != "" || payload.Webhook != "" {
			t.Fatalf("payload = %+v", payload)
		}
		_, _ = w.Write([]byte(`{"id":"pred-2","status":"starting"}`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL, APIToken: "t"})
	id, err := c.Submit(context.Background(), Request{Model: "google/nano-banana-pro", Input: map[string]any{}})
	if err != nil || id != "pred-2" {
		t.Fatalf("Submit = %q, %v", id, err)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	cases := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{name: "body hint", body: `{"detail":"slow down","retry_after":7}`, want: 7 * time.Second},
		{name: "header hint", header: "3", body: `{"detail":"slow down"}`, want: 3 * time.Second},
		{name: "no hint", body: `{"detail":"slow down"}`, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.header != "" {
					w.Header().Set("Retry-After", tc.header)
				}
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			c := NewClient(Options{BaseURL: ts.URL, APIToken: "t"})
			_, err := c.Submit(context.Background(), Request{Version: "v"})
			var rl *RateLimitError
			if !errors.As(err, &rl) {
				t.Fatalf("err = %v, want *RateLimitError", err)
			}
			if rl.RetryAfter != tc.want {
				t.Fatalf("RetryAfter = %s, want %s", rl.RetryAfter, tc.want)
			}
		})
	}
}

func TestSubmitAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"invalid version"}`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL, APIToken: "t"})
	_, err := c.Submit(context.Background(), Request{Version: "v"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "invalid version" {
		t.Fatalf("err = %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	if _, err := NewClient(Options{}).Submit(context.Background(), Request{Version: "v"}); err == nil {
		t.Fatal("expected error when token missing")
	}
	c := NewClient(Options{APIToken: "t"})
	if _, err := c.Submit(context.Background(), Request{}); err == nil {
		t.Fatal("expected error without version or model")
	}
	if _, err := c.Submit(context.Background(), Request{Model: "no-slash"}); err == nil {
		t.Fatal("expected error for malformed model")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("1.5"); got != 1500*time.Millisecond {
		t.Fatalf("parseRetryAfter(1.5) = %s", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("parseRetryAfter(soon) = %s", got)
	}
}

func TestCallbackFirstOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string output", body: `{"id":"p1","status":"succeeded","output":"https://cdn.example.com/a.png"}`, want: "https://cdn.example.com/a.png"},
		{name: "list output", body: `{"id":"p1","status":"succeeded","output":["", "https://cdn.example.com/b.webp"]}`, want: "https://cdn.example.com/b.webp"},
		{name: "null output", body: `{"id":"p1","status":"failed","output":null,"error":"NSFW"}`, want: ""},
		{name: "missing output", body: `{"id":"p1","status":"canceled"}`, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cb Callback
			if err := json.Unmarshal([]byte(tc.body), &cb); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := cb.FirstOutput(); got != tc.want {
				t.Fatalf("FirstOutput() = %q, want %q", got, tc.want)
			}
		})
	}
}
