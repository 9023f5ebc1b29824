package handlers

import (
	"net/http"

	"github.com/ttleague/ladder-system/live"
	"github.com/ttleague/ladder-system/services"
)

// WSHandler subscribes clients to live updates of a single ranking.
type WSHandler struct {
	hub            *live.Hub
	rankingService *services.RankingService
}

func NewWSHandler(hub *live.Hub, rankingService *services.RankingService) *WSHandler {
	return &WSHandler{hub: hub, rankingService: rankingService}
}

func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	rankingID, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if _, err := h.rankingService.GetByID(r.Context(), rankingID); err != nil {
		mapServiceError(w, err)
		return
	}

	h.hub.ServeWS(w, r, rankingID)
}
