package combiner

import "tarifa/internal/stats"

// EqualWeight averages its input vectors and, if Normalize is on (the
// default), re-standardizes the result.
type EqualWeight struct {
	Normalize bool
}

// NewEqualWeight builds the equal-weight combiner with normalization on.
func NewEqualWeight() *EqualWeight {
	return &EqualWeight{Normalize: true}
}

func (c *EqualWeight) Name() string { return "equal_weight" }

func (c *EqualWeight) Combine(signals []SignalScore) ([]float64, error) {
	n, err := validate(signals)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for _, s := range signals {
		for i, v := range s.Scores {
			out[i] += v
		}
	}
	count := float64(len(signals))
	for i := range out {
		out[i] /= count
	}

	if c.Normalize {
		out, _ = stats.Standardize(out)
	}

	if err := requireFinite(out); err != nil {
		return nil, err
	}
	return out, nil
}
