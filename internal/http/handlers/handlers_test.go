package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"feedplanner/internal/dispatch"
	"feedplanner/internal/domain"
	"feedplanner/internal/feeds"
	"feedplanner/internal/middleware"
)

type fakeFeeds struct {
	got feeds.CreateRequest
	err error
}

func (f *fakeFeeds) CreateFeed(_ context.Context, req feeds.CreateRequest) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return "feed-1", nil
}

type fakeLayouts struct {
	layout *domain.FeedLayout
	posts  []domain.FeedPost
}

func (f *fakeLayouts) GetLayout(_ context.Context, feedID, userID string) (*domain.FeedLayout, error) {
	if f.layout == nil || f.layout.ID != feedID || f.layout.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return f.layout, nil
}

func (f *fakeLayouts) ListPosts(context.Context, string) ([]domain.FeedPost, error) {
	return f.posts, nil
}

type fakeQueue struct {
	summary dispatch.Summary
	err     error
	ctxErr  error
	delay   time.Duration
}

func (f *fakeQueue) QueueFeed(ctx context.Context, feedID, _ string) (dispatch.Summary, error) {
	time.Sleep(f.delay)
	f.ctxErr = ctx.Err()
	f.summary.FeedLayoutID = feedID
	return f.summary, f.err
}

type predictionCall struct {
	id, value string
}

type fakePredictions struct {
	known     map[string]bool
	completed []predictionCall
	failed    []predictionCall
}

func (f *fakePredictions) CompletePrediction(_ context.Context, id, url string) (bool, error) {
	f.completed = append(f.completed, predictionCall{id, url})
	return f.known[id], nil
}

func (f *fakePredictions) FailPrediction(_ context.Context, id, reason string) (bool, error) {
	f.failed = append(f.failed, predictionCall{id, reason})
	return f.known[id], nil
}

type fakeRotation struct {
	state domain.RotationState
}

func (f *fakeRotation) Get(_ context.Context, userID, vibe, style string) (domain.RotationState, error) {
	s := f.state
	s.UserID, s.Vibe, s.FashionStyle = userID, vibe, style
	return s, nil
}

func (f *fakeRotation) Reset(_ context.Context, _, vibe, style string) (int64, error) {
	if (vibe == "") != (style == "") {
		return 0, fmt.Errorf("rotation: %w: vibe and fashion style must be given together", domain.ErrInvalidInput)
	}
	if vibe == "" {
		return 4, nil
	}
	return 1, nil
}

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestFeedsCreate(t *testing.T) {
	created := &fakeFeeds{}
	app := &App{Feeds: created, Logger: zerolog.Nop()}

	body := `{"feed_style":"dark_moody","custom_settings":{"mode":"pro","pro_positions":[1,5],"auto_queue":true}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/feeds", strings.NewReader(body))
	req = authed(req, "user-1")
	req = req.WithContext(context.WithValue(req.Context(), middleware.LocaleKey, "id"))
	rr := httptest.NewRecorder()
	app.FeedsCreate(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rr.Code, rr.Body.String())
	}
	var resp createFeedResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.FeedID != "feed-1" || resp.Status != "processing" {
		t.Fatalf("response = %+v", resp)
	}
	got := created.got
	if got.UserID != "user-1" || got.Locale != "id" || got.Settings.Mode != domain.ModePro || !got.Settings.AutoQueue {
		t.Fatalf("create request = %+v", got)
	}
}

func TestFeedsCreateRejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		user     string
		err      error
		status   int
		wantCode string
	}{
		{name: "no user", body: `{"feed_style":"beige"}`, status: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "bad json", body: `{`, user: "u", status: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "unknown field", body: `{"feed_style":"beige","colour":"red"}`, user: "u", status: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "missing style", body: `{}`, user: "u", status: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "unknown style", body: `{"feed_style":"neon"}`, user: "u", err: fmt.Errorf("templates: %w: neon", domain.ErrInvalidFeedStyle), status: http.StatusBadRequest, wantCode: "invalid_feed_style"},
		{name: "bad position", body: `{"feed_style":"beige"}`, user: "u", err: domain.ErrInvalidPosition, status: http.StatusBadRequest, wantCode: "invalid_position"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := &App{Feeds: &fakeFeeds{err: tc.err}, Logger: zerolog.Nop()}
			req := httptest.NewRequest(http.MethodPost, "/v1/feeds", strings.NewReader(tc.body))
			if tc.user != "" {
				req = authed(req, tc.user)
			}
			rr := httptest.NewRecorder()
			app.FeedsCreate(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			if code := decodeError(t, rr); code != tc.wantCode {
				t.Fatalf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestFeedsGet(t *testing.T) {
	layouts := &fakeLayouts{
		layout: &domain.FeedLayout{ID: "feed-1", UserID: "user-1", FeedStyle: "dark_moody", TemplateKey: "luxury_dark_moody", Status: domain.FeedStatusReady},
		posts: []domain.FeedPost{
			{ID: "p1", Position: 1, Mode: domain.ModeClassic, ShotType: domain.ShotFullbody, Prompt: "TOK, woman, ...", Status: domain.PostStatusGenerating, PredictionID: "pred-1"},
			{ID: "p2", Position: 2, Mode: domain.ModePro, Status: domain.PostStatusSucceeded, ImageURL: "https://cdn.example.com/2.png"},
		},
	}
	app := &App{Layouts: layouts, Logger: zerolog.Nop()}

	req := withParam(httptest.NewRequest(http.MethodGet, "/v1/feeds/feed-1", nil), "feedID", "feed-1")
	rr := httptest.NewRecorder()
	app.FeedsGet(rr, authed(req, "user-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var out feedLayoutDTO
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TemplateKey != "luxury_dark_moody" || len(out.Posts) != 2 || out.Posts[1].ImageURL == "" || out.Posts[0].PredictionID != "pred-1" {
		t.Fatalf("layout = %+v", out)
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/v1/feeds/feed-1", nil), "feedID", "feed-1")
	rr = httptest.NewRecorder()
	app.FeedsGet(rr, authed(req, "someone-else"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign feed status = %d, want 404", rr.Code)
	}
}

func TestFeedsQueueStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode string
	}{
		{name: "insufficient credits", err: fmt.Errorf("dispatch: %w", domain.ErrInsufficientCredits), status: http.StatusPaymentRequired, wantCode: "insufficient_credits"},
		{name: "no trained model", err: fmt.Errorf("dispatch: %w", domain.ErrNoTrainedModel), status: http.StatusConflict, wantCode: "no_trained_model"},
		{name: "layout not ready", err: fmt.Errorf("dispatch: %w", domain.ErrLayoutNotReady), status: http.StatusConflict, wantCode: "not_ready"},
		{name: "missing references", err: fmt.Errorf("dispatch: %w", domain.ErrMissingReferenceImages), status: http.StatusUnprocessableEntity, wantCode: "missing_reference_images"},
		{name: "not found", err: domain.ErrNotFound, status: http.StatusNotFound, wantCode: "not_found"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, wantCode: "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := &App{Queue: &fakeQueue{err: tc.err}, Logger: zerolog.Nop()}
			req := withParam(httptest.NewRequest(http.MethodPost, "/v1/feeds/feed-1/queue", nil), "feedID", "feed-1")
			rr := httptest.NewRecorder()
			app.FeedsQueue(rr, authed(req, "user-1"))
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			if code := decodeError(t, rr); code != tc.wantCode {
				t.Fatalf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestFeedsQueueDetachesFromRequest(t *testing.T) {
	queue := &fakeQueue{summary: dispatch.Summary{QueuedCount: 8, TotalPosts: 9, FailedCount: 1, CreditsCharged: 8}}
	app := &App{Queue: queue, Logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/feeds/feed-1/queue", nil).WithContext(ctx)
	req = withParam(authed(req, "user-1"), "feedID", "feed-1")
	rr := httptest.NewRecorder()
	app.FeedsQueue(rr, req)

	if queue.ctxErr != nil {
		t.Fatalf("dispatcher saw cancelled context: %v", queue.ctxErr)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got dispatch.Summary
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FeedLayoutID != "feed-1" || got.CreditsCharged != 8 {
		t.Fatalf("summary = %+v", got)
	}
}

func TestPredictionWebhook(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		body          string
		status        int
		wantCompleted []predictionCall
		wantFailed    []predictionCall
		wantUpdated   bool
	}{
		{
			name:          "succeeded with list output",
			query:         "?token=hook-secret",
			body:          `{"id":"pred-1","status":"succeeded","output":["https://cdn.example.com/1.png"]}`,
			status:        http.StatusOK,
			wantCompleted: []predictionCall{{"pred-1", "https://cdn.example.com/1.png"}},
			wantUpdated:   true,
		},
		{
			name:        "failed",
			query:       "?token=hook-secret",
			body:        `{"id":"pred-1","status":"failed","error":"NSFW content detected"}`,
			status:      http.StatusOK,
			wantFailed:  []predictionCall{{"pred-1", "NSFW content detected"}},
			wantUpdated: true,
		},
		{
			name:       "canceled without error text",
			query:      "?token=hook-secret",
			body:       `{"id":"pred-9","status":"canceled"}`,
			status:     http.StatusOK,
			wantFailed: []predictionCall{{"pred-9", "prediction canceled"}},
		},
		{
			name:   "processing is acknowledged",
			query:  "?token=hook-secret",
			body:   `{"id":"pred-1","status":"processing"}`,
			status: http.StatusOK,
		},
		{
			name:   "wrong token",
			query:  "?token=nope",
			body:   `{"id":"pred-1","status":"succeeded","output":"https://cdn.example.com/1.png"}`,
			status: http.StatusUnauthorized,
		},
		{
			name:   "missing id",
			query:  "?token=hook-secret",
			body:   `{"status":"succeeded"}`,
			status: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			preds := &fakePredictions{known: map[string]bool{"pred-1": true}}
			app := &App{Predictions: preds, WebhookToken: "hook-secret", Logger: zerolog.Nop()}
			req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/predictions"+tc.query, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			app.PredictionWebhook(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tc.status, rr.Body.String())
			}
			if fmt.Sprint(preds.completed) != fmt.Sprint(tc.wantCompleted) || fmt.Sprint(preds.failed) != fmt.Sprint(tc.wantFailed) {
				t.Fatalf("completed = %v failed = %v", preds.completed, preds.failed)
			}
			if tc.status != http.StatusOK {
				return
			}
			var ack map[string]bool
			if err := json.NewDecoder(rr.Body).Decode(&ack); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !ack["ok"] || ack["updated"] != tc.wantUpdated {
				t.Fatalf("ack = %v", ack)
			}
		})
	}
}

func TestRotationHandlers(t *testing.T) {
	app := &App{Rotation: &fakeRotation{state: domain.RotationState{OutfitIndex: 8, LocationIndex: 6, AccessoryIndex: 4, TotalGenerations: 2}}, Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/v1/rotation?vibe=luxury_dark_moody&fashion_style=casual", nil)
	rr := httptest.NewRecorder()
	app.RotationGet(rr, authed(req, "user-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var state rotationStateDTO
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.OutfitIndex != 8 || state.Vibe != "luxury_dark_moody" || state.LastUsedAt != nil {
		t.Fatalf("state = %+v", state)
	}

	rr = httptest.NewRecorder()
	app.RotationGet(rr, authed(httptest.NewRequest(http.MethodGet, "/v1/rotation", nil), "user-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing vibe status = %d, want 400", rr.Code)
	}

	tests := []struct {
		body   string
		status int
		reset  int64
	}{
		{body: "", status: http.StatusOK, reset: 4},
		{body: `{"vibe":"luxury_dark_moody","fashion_style":"casual"}`, status: http.StatusOK, reset: 1},
		{body: `{"vibe":"luxury_dark_moody"}`, status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/v1/rotation/reset", strings.NewReader(tc.body))
		rr := httptest.NewRecorder()
		app.RotationReset(rr, authed(req, "user-1"))
		if rr.Code != tc.status {
			t.Fatalf("reset %q status = %d, want %d", tc.body, rr.Code, tc.status)
		}
		if tc.status != http.StatusOK {
			continue
		}
		var out map[string]int64
		if err := json.NewDecoder(rr.Body).Decode(&out); err != nil || out["reset"] != tc.reset {
			t.Fatalf("reset %q = %v (%v)", tc.body, out, err)
		}
	}
}

type pingSQL struct {
	err error
}

func (p pingSQL) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p pingSQL) QueryRow(context.Context, string, ...any) pgx.Row {
	return pingRow(p)
}

func (p pingSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type pingRow struct {
	err error
}

func (r pingRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = 1
	return nil
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		app    *App
		status int
	}{
		{name: "no database", app: &App{}, status: http.StatusOK},
		{name: "database ok", app: &App{SQL: pingSQL{}}, status: http.StatusOK},
		{name: "database down", app: &App{SQL: pingSQL{err: errors.New("dial tcp: refused")}, Logger: zerolog.Nop()}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.app.Health(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
		})
	}
}

func TestOpenAPIJSONRevalidates(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}

	rr := httptest.NewRecorder()
	app.OpenAPIJSON(rr, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Fatalf("document has no paths")
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	app.OpenAPIJSON(rr, req)
	if rr.Code != http.StatusNotModified || rr.Body.Len() != 0 {
		t.Fatalf("revalidation = %d with %d bytes", rr.Code, rr.Body.Len())
	}
}

func TestFeedsQueueOutlivesServerWriteTimeout(t *testing.T) {
	queue := &fakeQueue{delay: 300 * time.Millisecond, summary: dispatch.Summary{QueuedCount: 9, TotalPosts: 9, CreditsCharged: 9}}
	app := &App{Queue: queue, Logger: zerolog.Nop(), QueueWriteTimeout: 5 * time.Second}
	handler := middleware.Logger(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.FeedsQueue(w, withParam(authed(r, "user-1"), "feedID", "feed-1"))
	}))

	srv := httptest.NewUnstartedServer(handler)
	srv.Config.WriteTimeout = 50 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/v1/feeds/feed-1/queue", "application/json", nil)
	if err != nil {
		t.Fatalf("POST queue: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got dispatch.Summary
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if got.FeedLayoutID != "feed-1" || got.QueuedCount != 9 {
		t.Fatalf("summary = %+v", got)
	}
}
