package services

import "errors"

// Общие ошибки сервисов. Handlers map these onto HTTP statuses.
var (
	// Validation and business-rule errors
	ErrValidationFailed   = errors.New("validation failed")
	ErrSamePlayer         = errors.New("challenger and defender must be different players")
	ErrDrawNotSupported   = errors.New("draws are not supported, a match needs a winner")
	ErrWinnerUnresolvable = errors.New("winner id does not match challenger or defender")
	ErrInvalidSortMode    = errors.New("unsupported sort mode")
	ErrEndDateNotFuture   = errors.New("end date must be in the future")
	ErrInvalidBonusRule   = errors.New("bonus rule requires amount, operator and threshold position")
	ErrPlayerNameRequired = errors.New("player name is required")

	// Not-found errors (wrap repository sentinels with service-level context)
	ErrPlayerNotFound   = errors.New("player not found")
	ErrRankingNotFound  = errors.New("ranking not found")
	ErrStandingNotFound = errors.New("player has no standing in this ranking")
	ErrMatchNotFound    = errors.New("ongoing match not found")

	// Conflict errors
	ErrAlreadyAttached  = errors.New("player is already in this ranking")
	ErrRankingNameTaken = errors.New("ranking name is already taken")
	ErrPlayerNameTaken  = errors.New("player name is already taken")
	ErrPositionConflict = errors.New("concurrent position change detected")
	ErrRankingEnded     = errors.New("ranking has ended")

	// Authentication
	ErrInvalidCredentials = errors.New("password does not match any registered realm")
)
