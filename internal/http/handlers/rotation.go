package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"feedplanner/internal/domain"
)

type rotationStateDTO struct {
	Vibe             string     `json:"vibe"`
	FashionStyle     string     `json:"fashion_style"`
	OutfitIndex      int        `json:"outfit_index"`
	LocationIndex    int        `json:"location_index"`
	AccessoryIndex   int        `json:"accessory_index"`
	TotalGenerations int        `json:"total_generations"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
}

type rotationResetRequest struct {
	Vibe         string `json:"vibe"`
	FashionStyle string `json:"fashion_style"`
}

func (a *App) RotationGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	q := r.URL.Query()
	vibe := strings.TrimSpace(q.Get("vibe"))
	if vibe == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "vibe required")
		return
	}
	state, err := a.Rotation.Get(r.Context(), userID, vibe, q.Get("fashion_style"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRotationDTO(state))
}

func (a *App) RotationReset(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req rotationResetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	n, err := a.Rotation.Reset(r.Context(), userID, req.Vibe, req.FashionStyle)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"reset": n})
}

func toRotationDTO(s domain.RotationState) rotationStateDTO {
	out := rotationStateDTO{
		Vibe:             s.Vibe,
		FashionStyle:     s.FashionStyle,
		OutfitIndex:      s.OutfitIndex,
		LocationIndex:    s.LocationIndex,
		AccessoryIndex:   s.AccessoryIndex,
		TotalGenerations: s.TotalGenerations,
	}
	if !s.LastUsedAt.IsZero() {
		t := s.LastUsedAt
		out.LastUsedAt = &t
	}
	return out
}
