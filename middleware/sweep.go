package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ttleague/ladder-system/services"
)

// ExpirySweep runs the auto-expiry sweep before read paths so viewers never
// see a ranking past its scheduled end still marked active. Sweep failures
// are logged, never blocking the read.
func ExpirySweep(rankings *services.RankingService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := rankings.AutoExpire(r.Context()); err != nil {
				logger.Error("auto-expiry sweep failed", slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FreezeGuard rejects mutations on ended rankings. The core deliberately does
// not enforce the freeze; it is a presentation-boundary rule. Mount on routes
// carrying a {rankingID} URL parameter.
func FreezeGuard(rankings *services.RankingService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idStr := chi.URLParam(r, "rankingID")
			id, err := strconv.Atoi(idStr)
			if err != nil || id < 1 {
				http.Error(w, "invalid ranking id", http.StatusBadRequest)
				return
			}
			ranking, err := rankings.GetByID(r.Context(), id)
			if err != nil {
				http.Error(w, "ranking not found", http.StatusNotFound)
				return
			}
			if ranking.Ended {
				http.Error(w, "ranking has ended", http.StatusConflict)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
