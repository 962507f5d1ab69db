package scoring

import "math/rand"

// QuadraticOption applies a configuration option to the QuadraticRule.
type QuadraticOption func(*QuadraticRule)

// WithAbsentPolicy selects the reward for missing answers.
func WithAbsentPolicy(policy AbsentPolicy) QuadraticOption {
	return func(r *QuadraticRule) {
		r.policy = policy
	}
}

// WithFloorCeiling bounds the random floor reward for absent answers.
func WithFloorCeiling(ceil float64) QuadraticOption {
	return func(r *QuadraticRule) {
		if ceil > 0 && ceil <= 1 {
			r.floorCeil = ceil
		}
	}
}

// WithSeed makes floor rewards deterministic, for tests.
func WithSeed(seed int64) QuadraticOption {
	return func(r *QuadraticRule) {
		r.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible testing
	}
}

// RMSEOption applies a configuration option to the RMSERule.
type RMSEOption func(*RMSERule)

// WithScale sets the scaling factor applied to the RMSE before the
// inverse-tangent squash. Larger values punish error harder.
func WithScale(c float64) RMSEOption {
	return func(r *RMSERule) {
		if c > 0 {
			r.scale = c
		}
	}
}
