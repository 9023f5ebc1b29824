package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/services"
)

type RankingHandler struct {
	rankingService   *services.RankingService
	standingsService *services.StandingsService
	matchService     *services.MatchService
	repairService    *services.RepairService
	clock            *services.Clock
}

func NewRankingHandler(
	rankingService *services.RankingService,
	standingsService *services.StandingsService,
	matchService *services.MatchService,
	repairService *services.RepairService,
	clock *services.Clock,
) *RankingHandler {
	return &RankingHandler{
		rankingService:   rankingService,
		standingsService: standingsService,
		matchService:     matchService,
		repairService:    repairService,
		clock:            clock,
	}
}

func (h *RankingHandler) List(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.rankingService.List(r.Context())
	if err != nil {
		serverErrorResponse(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, rankings, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RankingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name             string  `json:"name"`
		Description      *string `json:"description"`
		IsTournament     bool    `json:"is_tournament"`
		TournamentType   *string `json:"tournament_type"`
		SortMode         string  `json:"sort_mode"`
		EndsOn           *string `json:"ends_on"`
		InitialPlayerIDs []int   `json:"initial_player_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	var endsOn *time.Time
	if input.EndsOn != nil && *input.EndsOn != "" {
		t, err := h.clock.ParseLocal(*input.EndsOn)
		if err != nil {
			badRequestResponse(w, errors.New("ends_on is not a recognized date-time"))
			return
		}
		endsOn = &t
	}

	sortMode := models.SortMode(input.SortMode)
	if input.SortMode == "" {
		sortMode = models.SortByPosition
	}

	ranking, err := h.rankingService.Create(r.Context(), services.CreateRankingInput{
		Name:             input.Name,
		Description:      input.Description,
		IsTournament:     input.IsTournament,
		TournamentType:   input.TournamentType,
		SortMode:         sortMode,
		EndsOn:           endsOn,
		InitialPlayerIDs: input.InitialPlayerIDs,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, ranking, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// Get returns the full ranking view: the ranking itself, its ordered
// standings and the matches currently in play.
func (h *RankingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	ranking, err := h.rankingService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	standings, err := h.standingsService.OrderedView(r.Context(), id)
	if err != nil {
		serverErrorResponse(w, err)
		return
	}

	ongoing, err := h.matchService.ListByRanking(r.Context(), id)
	if err != nil {
		serverErrorResponse(w, err)
		return
	}

	view := jsonResponse{
		"ranking":         ranking,
		"standings":       standings,
		"ongoing_matches": ongoing,
	}
	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RankingHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		SortMode    *string `json:"sort_mode"`
		EndsOn      *string `json:"ends_on"`
		ClearEndsOn bool    `json:"clear_ends_on"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	settings := services.RankingSettingsInput{ClearEndsOn: input.ClearEndsOn}
	if input.SortMode != nil {
		mode := models.SortMode(*input.SortMode)
		settings.SortMode = &mode
	}
	if input.EndsOn != nil && *input.EndsOn != "" {
		t, err := h.clock.ParseLocal(*input.EndsOn)
		if err != nil {
			badRequestResponse(w, errors.New("ends_on is not a recognized date-time"))
			return
		}
		settings.EndsOn = &t
	}

	ranking, err := h.rankingService.UpdateSettings(r.Context(), id, settings)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, ranking, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RankingHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.rankingService.End(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "ranking ended"}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *RankingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.rankingService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Fix triggers the standings repair pass (orphan removal + gap compaction)
// for a single ranking.
func (h *RankingHandler) Fix(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if _, err := h.rankingService.GetByID(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}

	if err := h.repairService.Fix(r.Context(), id); err != nil {
		serverErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "ranking repaired"}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
