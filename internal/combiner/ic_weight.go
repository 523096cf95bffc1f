package combiner

import (
	"math"

	"tarifa/internal/stats"
)

// icWeightEpsilon guards both "history is effectively zero" and "total
// weight collapsed to zero" degenerate cases.
const icWeightEpsilon = 1e-10

// ICWeighted weights each signal by the exponential-decay-weighted mean of
// its historical Information Coefficient. It is the only stateful object
// in the core: it owns a per-signal bounded IC history ring that the
// caller updates serially via UpdateIC.
type ICWeighted struct {
	lookback    int
	decayFactor float64
	history     map[string][]float64
}

// NewICWeighted builds an IC-weighted combiner with a bounded history of
// `lookback` entries per signal and the given exponential decay factor
// (0 = uniform weighting of history).
func NewICWeighted(lookback int, decayFactor float64) *ICWeighted {
	return &ICWeighted{lookback: lookback, decayFactor: decayFactor, history: make(map[string][]float64)}
}

func (c *ICWeighted) Name() string { return "ic_weight" }

// UpdateIC appends an IC observation for a signal, evicting the oldest
// entry once the history exceeds the configured lookback.
func (c *ICWeighted) UpdateIC(name string, ic float64) {
	h := append(c.history[name], ic)
	if len(h) > c.lookback {
		h = h[len(h)-c.lookback:]
	}
	c.history[name] = h
}

// Reset clears all IC history, restoring the combiner to its freshly
// constructed state. Exists purely for testability.
func (c *ICWeighted) Reset() {
	c.history = make(map[string][]float64)
}

func (c *ICWeighted) weightedIC(name string) float64 {
	h := c.history[name]
	if len(h) == 0 {
		return 0
	}
	if math.Abs(c.decayFactor) < icWeightEpsilon {
		return stats.Mean(h)
	}

	var weightedSum, totalWeight float64
	n := len(h)
	for i, ic := range h {
		age := float64(n - 1 - i)
		w := math.Exp(-c.decayFactor * age)
		weightedSum += ic * w
		totalWeight += w
	}
	if totalWeight <= icWeightEpsilon {
		return 0
	}
	return weightedSum / totalWeight
}

func (c *ICWeighted) weights(signals []SignalScore) []float64 {
	ics := make([]float64, len(signals))
	var total float64
	for i, s := range signals {
		ics[i] = math.Abs(c.weightedIC(s.Name))
		total += ics[i]
	}

	if total < icWeightEpsilon {
		equal := 1.0 / float64(len(signals))
		out := make([]float64, len(signals))
		for i := range out {
			out[i] = equal
		}
		return out
	}

	out := make([]float64, len(signals))
	for i, ic := range ics {
		out[i] = ic / total
	}
	return out
}

func (c *ICWeighted) Combine(signals []SignalScore) ([]float64, error) {
	n, err := validate(signals)
	if err != nil {
		return nil, err
	}

	weights := c.weights(signals)

	out := make([]float64, n)
	for si, s := range signals {
		w := weights[si]
		for i, v := range s.Scores {
			out[i] += v * w
		}
	}

	out, _ = stats.Standardize(out)

	if err := requireFinite(out); err != nil {
		return nil, err
	}
	return out, nil
}
