package model

import "errors"

var (
	// ErrInvalidBallot is returned by Ballot.Validate.
	ErrInvalidBallot = errors.New("invalid ballot")
	// ErrInvalidDate marks a calendar date that does not parse.
	ErrInvalidDate = errors.New("invalid date")
)
