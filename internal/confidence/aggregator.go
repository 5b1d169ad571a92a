// Package confidence turns a set of per-source recommendation confidences
// into one overall confidence for the decision.
package confidence

import (
	"fmt"

	"github.com/MikeSquared-Agency/themis/internal/decision"
	"github.com/MikeSquared-Agency/themis/internal/policy"
)

// Result is the aggregation outcome. Overall is the value the escalation
// classifier consumes; Mean and Variance are kept for audit and reasoning.
type Result struct {
	Overall   float64 `json:"overall"`
	Mean      float64 `json:"mean"`
	Variance  float64 `json:"variance"`
	Penalized bool    `json:"penalized"`
}

// Aggregator applies the disagreement penalty policy.
type Aggregator struct {
	cfg policy.Confidence
}

func NewAggregator(cfg policy.Confidence) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate computes the arithmetic mean of the recommendation confidences.
// When the population variance exceeds the configured threshold the sources
// disagree too much to take the mean at face value, so it is scaled by the
// penalty factor. The result is clamped to [0,1] and is independent of input
// order.
func (a *Aggregator) Aggregate(recs []decision.Recommendation) (Result, error) {
	if len(recs) == 0 {
		return Result{}, &decision.ValidationError{Field: "recommendations", Reason: "at least one recommendation required"}
	}

	var sum float64
	for i, r := range recs {
		if r.Confidence < 0.0 || r.Confidence > 1.0 {
			return Result{}, &decision.ValidationError{
				Field:  "recommendations",
				Reason: fmt.Sprintf("confidence %g at index %d outside [0,1]", r.Confidence, i),
			}
		}
		sum += r.Confidence
	}
	mean := sum / float64(len(recs))

	var sqDiff float64
	for _, r := range recs {
		d := r.Confidence - mean
		sqDiff += d * d
	}
	variance := sqDiff / float64(len(recs))

	overall := mean
	penalized := variance > a.cfg.VarianceThreshold
	if penalized {
		overall = mean * a.cfg.PenaltyFactor
	}

	return Result{
		Overall:   clamp(overall),
		Mean:      mean,
		Variance:  variance,
		Penalized: penalized,
	}, nil
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
