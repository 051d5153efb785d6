package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"feedplanner/internal/domain"
	"feedplanner/internal/feeds"
	"feedplanner/internal/middleware"
)

type createFeedRequest struct {
	FeedStyle      string                `json:"feed_style"`
	CustomSettings domain.CustomSettings `json:"custom_settings"`
}

type createFeedResponse struct {
	FeedID string `json:"feed_id"`
	Status string `json:"status"`
}

type feedPostDTO struct {
	ID           string `json:"id"`
	Position     int    `json:"position"`
	Mode         string `json:"generation_mode,omitempty"`
	ShotType     string `json:"shot_type,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Caption      string `json:"caption,omitempty"`
	Status       string `json:"generation_status"`
	PredictionID string `json:"prediction_id,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type feedLayoutDTO struct {
	ID             string                `json:"id"`
	FeedStyle      string                `json:"feed_style"`
	FashionStyle   string                `json:"fashion_style,omitempty"`
	TemplateKey    string                `json:"template_key,omitempty"`
	Status         string                `json:"status"`
	CustomSettings domain.CustomSettings `json:"custom_settings"`
	ErrorMessage   string                `json:"error_message,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Posts          []feedPostDTO         `json:"posts"`
}

func (a *App) FeedsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req createFeedRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.FeedStyle) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "feed_style required")
		return
	}
	id, err := a.Feeds.CreateFeed(r.Context(), feeds.CreateRequest{
		UserID:    userID,
		FeedStyle: req.FeedStyle,
		Settings:  req.CustomSettings,
		Locale:    middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, createFeedResponse{FeedID: id, Status: string(domain.FeedStatusProcessing)})
}

func (a *App) FeedsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	feedID := chi.URLParam(r, "feedID")
	layout, err := a.Layouts.GetLayout(r.Context(), feedID, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	posts, err := a.Layouts.ListPosts(r.Context(), layout.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	out := feedLayoutDTO{
		ID:             layout.ID,
		FeedStyle:      layout.FeedStyle,
		FashionStyle:   layout.FashionStyle,
		TemplateKey:    layout.TemplateKey,
		Status:         string(layout.Status),
		CustomSettings: layout.Settings,
		ErrorMessage:   layout.ErrorMessage,
		CreatedAt:      layout.CreatedAt,
		UpdatedAt:      layout.UpdatedAt,
		Posts:          make([]feedPostDTO, 0, len(posts)),
	}
	for _, p := range posts {
		out.Posts = append(out.Posts, feedPostDTO{
			ID:           p.ID,
			Position:     p.Position,
			Mode:         string(p.Mode),
			ShotType:     string(p.ShotType),
			Prompt:       p.Prompt,
			Caption:      p.Caption,
			Status:       string(p.Status),
			PredictionID: p.PredictionID,
			ImageURL:     p.ImageURL,
			ErrorMessage: p.ErrorMessage,
		})
	}
	a.json(w, http.StatusOK, out)
}

// FeedsQueue runs the dispatcher synchronously. The batch is detached from
// the request so a client disconnect cannot leave submitted posts unbilled,
// and the write deadline is pushed out so the summary can still be sent.
func (a *App) FeedsQueue(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	feedID := chi.URLParam(r, "feedID")
	if a.QueueWriteTimeout > 0 {
		err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(a.QueueWriteTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			a.Logger.Warn().Err(err).Str("feed_id", feedID).Msg("handler: extend queue write deadline")
		}
	}
	summary, err := a.Queue.QueueFeed(context.WithoutCancel(r.Context()), feedID, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, summary)
}
