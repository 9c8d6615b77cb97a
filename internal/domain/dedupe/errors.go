package dedupe

import "errors"

// ErrKeyReused is returned when a recorded key is presented with a
// different fingerprint.
var ErrKeyReused = errors.New("idempotency key reused for a different request")
