package app

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrEventClosed  = errors.New("event no longer accepts forecasts")
	ErrBadDigest    = errors.New("malformed commitment digest")
)
