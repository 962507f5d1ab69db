// Package scoring converts accepted answers and revealed ground truth
// into bounded rewards.
//
// Two rules exist because events come in two shapes: binary markets
// score a single probability with a strictly proper quadratic rule,
// and continuous events score a numeric vector by its distance to the
// ground-truth vector. Both keep rewards in [0, 1] so they aggregate
// across participants without normalization.
package scoring

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/okian/settle/internal/domain/model"
)

// AbsentPolicy decides the reward for a participant with no eligible
// answer. Both behaviors occur in the wild, so the choice is an
// explicit configuration, never a silent default.
type AbsentPolicy int

const (
	// PolicyZero gives absent participants a hard zero.
	PolicyZero AbsentPolicy = iota
	// PolicyFloor gives absent participants a small random reward,
	// which keeps rankings from producing exact ties among all-absent
	// participants.
	PolicyFloor
)

// ParseAbsentPolicy maps the config vocabulary onto a policy.
func ParseAbsentPolicy(s string) (AbsentPolicy, bool) {
	switch s {
	case "zero":
		return PolicyZero, true
	case "floor":
		return PolicyFloor, true
	default:
		return PolicyZero, false
	}
}

// Truth is the revealed ground truth for one event.
type Truth struct {
	Outcome model.Outcome // binary events
	Values  []float64     // vector events
}

// Input carries one participant's accepted answer.
type Input struct {
	// Answer is the binary forecast probability; nil when the ledger
	// produced no eligible answer.
	Answer *float64

	// Values is the revealed vector answer; Verified reports whether
	// it passed the commit-reveal check.
	Values   []float64
	Verified bool
}

// Rule scores one accepted answer against ground truth.
type Rule interface {
	Score(ctx context.Context, in Input, truth Truth) (float64, error)
}

// QuadraticRule is the strictly proper scoring rule for binary
// markets: truth-telling the calibrated probability maximizes the
// expected reward.
type QuadraticRule struct {
	policy    AbsentPolicy
	floorCeil float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuadraticRule creates a binary rule with configuration options.
func NewQuadraticRule(opts ...QuadraticOption) *QuadraticRule {
	r := &QuadraticRule{
		policy:    PolicyZero,
		floorCeil: 0.1,
		rng:       rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // floor rewards need no crypto entropy
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Score rewards the clamped probability of OutcomeYes: p^2 when the
// market resolved yes, (1-p)^2 when it resolved no. An event flagged
// settled with an unknown outcome is a data inconsistency: the reward
// is zero and ErrUnknownOutcome signals the caller to warn.
func (r *QuadraticRule) Score(ctx context.Context, in Input, truth Truth) (float64, error) {
	if in.Answer == nil {
		return r.absent(), nil
	}

	p := math.Max(0, math.Min(1, *in.Answer))
	switch truth.Outcome {
	case model.OutcomeYes:
		return p * p, nil
	case model.OutcomeNo:
		return (1 - p) * (1 - p), nil
	default:
		return 0, ErrUnknownOutcome
	}
}

func (r *QuadraticRule) absent() float64 {
	if r.policy == PolicyZero {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() * r.floorCeil
}

// RMSERule scores a numeric-vector answer by its root-mean-square
// error against the ground-truth vector, squashed through an inverse
// tangent into (0, 1]. The answer must have passed the commit-reveal
// gate, otherwise the reward is zero regardless of closeness.
type RMSERule struct {
	scale float64
}

// NewRMSERule creates a vector rule with configuration options.
func NewRMSERule(opts ...RMSEOption) *RMSERule {
	r := &RMSERule{scale: 1.0}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Score maps rmse 0 to reward 1, decreasing monotonically toward 0.
func (r *RMSERule) Score(ctx context.Context, in Input, truth Truth) (float64, error) {
	if len(in.Values) == 0 || !in.Verified {
		return 0, nil
	}
	if len(in.Values) != len(truth.Values) {
		return 0, ErrShapeMismatch
	}

	var sum float64
	for i, v := range in.Values {
		d := v - truth.Values[i]
		sum += d * d
	}
	rmse := math.Sqrt(sum / float64(len(in.Values)))

	return (math.Atan(-r.scale*rmse) + math.Pi/2) / (math.Pi / 2), nil
}
