// Package combiner merges several aligned factor score vectors into one
// composite alpha. Variants differ only in how per-signal weights are
// derived: equal weight, IC-weighted (exponential-decay history), and
// volatility-scaled.
package combiner

import (
	"math"

	"tarifa/internal/coreerr"
	"tarifa/internal/stats"
)

// SignalScore is a named score vector. When several are combined, vectors
// are aligned by position; the caller guarantees the positional symbol
// order is identical across signals.
type SignalScore struct {
	Name   string
	Scores []float64
}

// Combiner merges one or more SignalScore vectors into a single composite
// vector of the same length.
type Combiner interface {
	Name() string
	Combine(signals []SignalScore) ([]float64, error)
}

// validate enforces the two universal preconditions every combiner shares:
// at least one signal, and every signal the same length.
func validate(signals []SignalScore) (int, error) {
	if len(signals) == 0 {
		return 0, coreerr.NewInvalidData("cannot combine zero signals", nil)
	}
	n := len(signals[0].Scores)
	for _, s := range signals {
		if len(s.Scores) != n {
			return 0, coreerr.NewInvalidData("signal length mismatch", nil)
		}
	}
	return n, nil
}

// requireFinite rejects a combiner output containing any non-finite value.
func requireFinite(out []float64) error {
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return coreerr.NewInvalidData("combiner produced non-finite output", nil)
		}
	}
	return nil
}
