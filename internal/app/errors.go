package service

import "errors"

// Sentinel kinds for service errors. Store and ballot validation errors
// (repository.ErrNotFound, repository.ErrAlreadyExists, model.ErrInvalidBallot)
// pass through wrapped.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidName   = errors.New("invalid player name")
	ErrInvalidSeason = errors.New("invalid season")
	ErrNotRegistered = errors.New("voter has no player profile")
	ErrVotingClosed  = errors.New("voting is closed")
	ErrQueueFull     = errors.New("ballot queue is full")
	ErrKeyReused     = errors.New("idempotency key already used for a different ballot")
)
