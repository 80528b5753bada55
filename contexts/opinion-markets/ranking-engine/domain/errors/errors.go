package errors

import "errors"

var (
	ErrInvalidVoteInput       = errors.New("invalid vote input")
	ErrDuplicateRankPositions = errors.New("duplicate rank positions not allowed")
	ErrRankingNotFound        = errors.New("ranking not found")
	ErrRankingClosed          = errors.New("ranking round is closed")
	ErrRankingAlreadyResolved = errors.New("ranking is already resolved")
	ErrVoteNotFound           = errors.New("vote not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrResolutionNotFound     = errors.New("resolution not found")
	ErrResolutionExists       = errors.New("resolution already exists for ranking and week")
	ErrUnauthorizedTrigger    = errors.New("resolution trigger is unauthorized")
)
