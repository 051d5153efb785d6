package handlers

import (
	"context"
	"net/http"
	"time"

	"feedplanner/internal/sqlinline"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if a.SQL == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	var one int
	if err := a.SQL.QueryRow(ctx, sqlinline.QHealthPing).Scan(&one); err != nil {
		a.Logger.Warn().Err(err).Msg("health: database ping failed")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
