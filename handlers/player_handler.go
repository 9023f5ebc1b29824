package handlers

import (
	"net/http"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/services"
)

type PlayerHandler struct {
	playerService    *services.PlayerService
	standingsService *services.StandingsService
	bonusService     *services.BonusService
}

func NewPlayerHandler(
	playerService *services.PlayerService,
	standingsService *services.StandingsService,
	bonusService *services.BonusService,
) *PlayerHandler {
	return &PlayerHandler{
		playerService:    playerService,
		standingsService: standingsService,
		bonusService:     bonusService,
	}
}

type bonusRulePayload struct {
	Amount            int    `json:"amount"`
	Operator          string `json:"operator"`
	ThresholdPosition int    `json:"threshold_position"`
}

func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.playerService.List(r.Context())
	if err != nil {
		serverErrorResponse(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, players, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	player, err := h.playerService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, player, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name      string            `json:"name"`
		RankingID *int              `json:"ranking_id"`
		Bonus     *bonusRulePayload `json:"bonus"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	createInput := services.CreatePlayerInput{
		Name:      input.Name,
		RankingID: input.RankingID,
	}
	if input.Bonus != nil {
		createInput.Bonus = &services.BonusRuleInput{
			Amount:            input.Bonus.Amount,
			Operator:          models.BonusOperator(input.Bonus.Operator),
			ThresholdPosition: input.Bonus.ThresholdPosition,
		}
	}

	player, err := h.playerService.Create(r.Context(), createInput)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, player, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Name     *string `json:"name"`
		Wins     *int    `json:"wins"`
		Losses   *int    `json:"losses"`
		SetsWon  *int    `json:"sets_won"`
		SetsLost *int    `json:"sets_lost"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	player, err := h.playerService.Update(r.Context(), id, services.UpdatePlayerInput{
		Name:     input.Name,
		Wins:     input.Wins,
		Losses:   input.Losses,
		SetsWon:  input.SetsWon,
		SetsLost: input.SetsLost,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, player, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// Delete removes the player everywhere: standings, ongoing matches and the
// bonus rule go with the identity. Affected rankings are re-compacted.
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.playerService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Attach adds an existing player to a ranking at the bottom slot.
func (h *PlayerHandler) Attach(w http.ResponseWriter, r *http.Request) {
	rankingID, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		PlayerID int `json:"player_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	standing, err := h.standingsService.Attach(r.Context(), input.PlayerID, rankingID)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, standing, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// Detach removes the player from one ranking only; the identity and its
// history in other rankings survive.
func (h *PlayerHandler) Detach(w http.ResponseWriter, r *http.Request) {
	rankingID, err := getIDFromURL(r, "rankingID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.standingsService.Detach(r.Context(), playerID, rankingID); err != nil {
		mapServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlayerHandler) SetBonusRule(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input bonusRulePayload
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	rule, err := h.bonusService.SetRule(r.Context(), playerID, input.Amount,
		models.BonusOperator(input.Operator), input.ThresholdPosition)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, rule, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *PlayerHandler) RemoveBonusRule(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.bonusService.RemoveRule(r.Context(), playerID); err != nil {
		mapServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
