package polymarket

import "errors"

// Sentinel kinds for provider errors.
var (
	ErrUpstreamStatus  = errors.New("unexpected upstream status")
	ErrMalformedMarket = errors.New("malformed market record")
)
