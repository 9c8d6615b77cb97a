package seedballots

import "errors"

// Sentinel errors for seeding runs.
var (
	ErrConfig           = errors.New("invalid seed configuration")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrVerification     = errors.New("verification failed")
)
