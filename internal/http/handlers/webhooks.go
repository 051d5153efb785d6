package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"feedplanner/internal/providers/prediction"
)

// PredictionWebhook receives provider callbacks. Unknown prediction ids and
// non-terminal statuses are acknowledged so the provider stops retrying.
func (a *App) PredictionWebhook(w http.ResponseWriter, r *http.Request) {
	if a.WebhookToken != "" {
		got := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.WebhookToken)) != 1 {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid webhook token")
			return
		}
	}
	var cb prediction.Callback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&cb); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	cb.ID = strings.TrimSpace(cb.ID)
	if cb.ID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prediction id required")
		return
	}
	log := a.Logger.With().Str("prediction_id", cb.ID).Str("status", cb.Status).Logger()

	var (
		updated bool
		err     error
	)
	switch cb.Status {
	case prediction.StatusSucceeded:
		url := cb.FirstOutput()
		if url == "" {
			updated, err = a.Predictions.FailPrediction(r.Context(), cb.ID, "prediction succeeded without output")
			break
		}
		updated, err = a.Predictions.CompletePrediction(r.Context(), cb.ID, url)
	case prediction.StatusFailed, prediction.StatusCanceled:
		reason := cb.ErrorText()
		if reason == "" {
			reason = "prediction " + cb.Status
		}
		updated, err = a.Predictions.FailPrediction(r.Context(), cb.ID, reason)
	default:
		log.Debug().Msg("webhook: ignoring non-terminal status")
	}
	if err != nil {
		log.Error().Err(err).Msg("webhook: failed to record prediction")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record prediction")
		return
	}
	if !updated && (cb.Status == prediction.StatusSucceeded || cb.Status == prediction.StatusFailed || cb.Status == prediction.StatusCanceled) {
		log.Info().Msg("webhook: no pending post for prediction")
	}
	a.json(w, http.StatusOK, map[string]bool{"ok": true, "updated": updated})
}
