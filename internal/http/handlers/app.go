package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"feedplanner/internal/dispatch"
	"feedplanner/internal/domain"
	"feedplanner/internal/feeds"
	"feedplanner/internal/infra"
	"feedplanner/internal/middleware"
)

// FeedCreator creates feed layouts.
type FeedCreator interface {
	CreateFeed(ctx context.Context, req feeds.CreateRequest) (string, error)
}

// FeedReader loads a user's layout and its posts.
type FeedReader interface {
	GetLayout(ctx context.Context, feedID, userID string) (*domain.FeedLayout, error)
	ListPosts(ctx context.Context, feedID string) ([]domain.FeedPost, error)
}

// PredictionSink records prediction outcomes delivered by the webhook.
type PredictionSink interface {
	CompletePrediction(ctx context.Context, predictionID, imageURL string) (bool, error)
	FailPrediction(ctx context.Context, predictionID, reason string) (bool, error)
}

// Queuer runs the generation dispatcher for one feed.
type Queuer interface {
	QueueFeed(ctx context.Context, feedLayoutID, userID string) (dispatch.Summary, error)
}

// RotationService reads and resets rotation cursors.
type RotationService interface {
	Get(ctx context.Context, userID, vibe, fashionStyle string) (domain.RotationState, error)
	Reset(ctx context.Context, userID, vibe, fashionStyle string) (int64, error)
}

type App struct {
	SQL          infra.SQLExecutor
	Logger       zerolog.Logger
	JWTSecret    string
	WebhookToken string

	Feeds       FeedCreator
	Layouts     FeedReader
	Predictions PredictionSink
	Queue       Queuer
	Rotation    RotationService

	// QueueWriteTimeout replaces the server write timeout for the queue
	// route, which answers only after the whole paced batch.
	QueueWriteTimeout time.Duration
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// domainError maps service errors onto HTTP statuses and stable codes.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, domain.FailureInsufficientCredits, err.Error())
	case errors.Is(err, domain.ErrNoTrainedModel):
		a.error(w, http.StatusConflict, domain.FailureNoTrainedModel, err.Error())
	case errors.Is(err, domain.ErrLayoutNotReady):
		a.error(w, http.StatusConflict, domain.FailureNotReady, err.Error())
	case errors.Is(err, domain.ErrMissingReferenceImages):
		a.error(w, http.StatusUnprocessableEntity, domain.FailureMissingReferenceImages, err.Error())
	case errors.Is(err, domain.ErrInvalidFeedStyle):
		a.error(w, http.StatusBadRequest, "invalid_feed_style", err.Error())
	case errors.Is(err, domain.ErrInvalidPosition):
		a.error(w, http.StatusBadRequest, "invalid_position", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "storage is not ready")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "request interrupted")
	default:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("handler: unexpected error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
