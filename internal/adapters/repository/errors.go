package repository

import "errors"

// ErrNotFound reports a missing settlement result.
var ErrNotFound = errors.New("settlement result not found")
