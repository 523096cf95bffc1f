package combiner

import "tarifa/internal/stats"

// VolScale standardizes the (optionally IC-weighted) combination and then
// rescales it so its sample standard deviation equals TargetVol.
type VolScale struct {
	TargetVol  float64
	UseICWeight bool
	icWeighted *ICWeighted
}

// NewVolScale builds the volatility-scaled combiner. icWeighted is used to
// derive input weights when useICWeight is true; pass nil otherwise.
func NewVolScale(targetVol float64, useICWeight bool, icWeighted *ICWeighted) *VolScale {
	return &VolScale{TargetVol: targetVol, UseICWeight: useICWeight, icWeighted: icWeighted}
}

func (c *VolScale) Name() string { return "vol_scale" }

func (c *VolScale) Combine(signals []SignalScore) ([]float64, error) {
	n, err := validate(signals)
	if err != nil {
		return nil, err
	}

	var weights []float64
	if c.UseICWeight && c.icWeighted != nil {
		weights = c.icWeighted.weights(signals)
	} else {
		equal := 1.0 / float64(len(signals))
		weights = make([]float64, len(signals))
		for i := range weights {
			weights[i] = equal
		}
	}

	combined := make([]float64, n)
	for si, s := range signals {
		w := weights[si]
		for i, v := range s.Scores {
			combined[i] += v * w
		}
	}

	standardized, res := stats.Standardize(combined)
	if !res.Applied {
		// degenerate input: leave as zeros rather than scaling noise.
		if err := requireFinite(standardized); err != nil {
			return nil, err
		}
		return standardized, nil
	}

	sigma := stats.SampleStd(standardized)
	out := make([]float64, n)
	if sigma > stats.MinStdThreshold {
		scale := c.TargetVol / sigma
		for i, v := range standardized {
			out[i] = v * scale
		}
	}

	if err := requireFinite(out); err != nil {
		return nil, err
	}
	return out, nil
}
