package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrUnknownOutcome flags an event settled without a usable ground
	// truth; the reward is zero and the caller should warn.
	ErrUnknownOutcome = errors.New("ground truth unknown for settled event")

	// ErrShapeMismatch flags a vector answer whose length differs from
	// the ground-truth vector.
	ErrShapeMismatch = errors.New("answer and ground truth shapes differ")
)
