package handlers

import (
	"net/http"
	"strconv"

	"github.com/ttleague/ladder-system/services"
)

type LogHandler struct {
	logService *services.LogService
}

func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errorResponse(w, http.StatusBadRequest, "invalid limit query parameter")
			return
		}
		limit = n
	}

	entries, err := h.logService.List(r.Context(), limit)
	if err != nil {
		serverErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, entries, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *LogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.logService.Clear(r.Context()); err != nil {
		serverErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
