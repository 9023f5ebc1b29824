package handlers

import (
	"net/http"

	"github.com/ttleague/ladder-system/services"
)

type MatchHandler struct {
	matchService *services.MatchService
}

func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	rankingID, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		ChallengerID int `json:"challenger_id"`
		DefenderID   int `json:"defender_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.matchService.Start(r.Context(), input.ChallengerID, input.DefenderID, rankingID)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, match, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// Finish settles an ongoing match. The body carries either an explicit
// winner_id or both set scores; the service resolves the rest.
func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		WinnerID        *int `json:"winner_id"`
		ChallengerScore *int `json:"challenger_score"`
		DefenderScore   *int `json:"defender_score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	finished, err := h.matchService.Finish(r.Context(), matchID, services.MatchOutcome{
		WinnerID:        input.WinnerID,
		ChallengerScore: input.ChallengerScore,
		DefenderScore:   input.DefenderScore,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, finished, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ListOngoing(w http.ResponseWriter, r *http.Request) {
	rankingID, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, err := h.matchService.ListByRanking(r.Context(), rankingID)
	if err != nil {
		serverErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, matches, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ListFinished(w http.ResponseWriter, r *http.Request) {
	rankingID, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, err := h.matchService.ListFinishedByRanking(r.Context(), rankingID)
	if err != nil {
		serverErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, matches, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
