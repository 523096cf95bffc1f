// Package evaluator scores a factor's predictive power: IC time series at
// a horizon, Information Ratio, turnover, and a decay curve with half-life.
package evaluator

import (
	"math"

	"tarifa/internal/stats"
)

// Config bundles the evaluator's tunables.
type Config struct {
	MinObservations    int
	Annualize          bool
	TradingDaysPerYear int
	Horizons           []int
}

// DefaultHorizons is the decay-curve horizon set used unless the caller
// overrides it.
var DefaultHorizons = []int{1, 5, 10, 21, 42, 63}

// DefaultConfig returns the evaluator defaults named in the spec.
func DefaultConfig() Config {
	return Config{MinObservations: 20, Annualize: true, TradingDaysPerYear: 252, Horizons: append([]int(nil), DefaultHorizons...)}
}

// ICSeries computes IC_t = spearman(signalScores[t], forwardReturns[t+horizon])
// for every t such that t+horizon < len(signalScores), skipping periods where
// either side doesn't exist past the parallel bound.
func ICSeries(signalScores, forwardReturns [][]float64, horizon int) []float64 {
	t := len(signalScores)
	if len(forwardReturns) < t {
		t = len(forwardReturns)
	}

	var out []float64
	for i := 0; i+horizon < t; i++ {
		out = append(out, stats.Spearman(signalScores[i], forwardReturns[i+horizon]))
	}
	return out
}

// MeanIC averages the finite entries of an IC series; missing (NaN) if
// fewer than minObservations are finite.
func MeanIC(ic []float64, minObservations int) float64 {
	finite := stats.Finite(ic)
	if len(finite) < minObservations {
		return math.NaN()
	}
	return stats.Mean(finite)
}

// HitRate is the fraction of finite IC values strictly greater than zero.
func HitRate(ic []float64) float64 {
	finite := stats.Finite(ic)
	if len(finite) == 0 {
		return math.NaN()
	}
	var hits int
	for _, v := range finite {
		if v > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(finite))
}

// InformationRatio is mean(IC)/stdev(IC) (ddof=1), annualized by
// sqrt(tradingDaysPerYear) when requested. Missing if fewer than
// minObservations finite IC values exist, mirroring MeanIC's gate.
func InformationRatio(ic []float64, cfg Config) float64 {
	finite := stats.Finite(ic)
	if len(finite) < cfg.MinObservations {
		return math.NaN()
	}
	meanIC := stats.Mean(finite)
	stdIC := stats.SampleStd(finite)
	if stdIC <= stats.MinStdThreshold {
		return math.NaN()
	}
	ir := meanIC / stdIC
	if cfg.Annualize {
		ir *= math.Sqrt(float64(cfg.TradingDaysPerYear))
	}
	return ir
}

// Turnover converts each period's score vector to per-asset fractional
// ranks, computes the lag-1 autocorrelation of each asset's rank series,
// and returns 1 - the average of those autocorrelations.
func Turnover(signalScores [][]float64) float64 {
	if len(signalScores) < 2 {
		return math.NaN()
	}
	nAssets := len(signalScores[0])

	rankSeries := make([][]float64, len(signalScores))
	for t, scores := range signalScores {
		rankSeries[t] = stats.Ranks(scores)
	}

	var totalAutocorr float64
	var validAssets int
	for a := 0; a < nAssets; a++ {
		series := make([]float64, 0, len(rankSeries))
		for t := range rankSeries {
			if a < len(rankSeries[t]) && !math.IsNaN(rankSeries[t][a]) {
				series = append(series, rankSeries[t][a])
			}
		}
		if len(series) < 2 {
			continue
		}
		ac := stats.Autocorr(series, 1)
		if !math.IsNaN(ac) {
			totalAutocorr += ac
			validAssets++
		}
	}

	if validAssets == 0 {
		return math.NaN()
	}
	return 1 - totalAutocorr/float64(validAssets)
}

// DecayPoint is one (horizon, IC) pair of a decay curve.
type DecayPoint struct {
	Horizon int
	IC      float64
}

// DecayAnalysis is the decay curve across a set of horizons plus its
// derived half-life and peak.
type DecayAnalysis struct {
	Curve       []DecayPoint
	HalfLife    float64 // NaN if no crossing found
	HasHalfLife bool
	MaxICHorizon int
	MaxIC        float64
	IsMonotonic  bool
}

// AnalyzeDecay computes mean IC at each horizon (via icAt, typically a
// closure over signalScores/forwardReturns and MeanIC) and derives the
// half-life: the interpolated horizon where absolute IC first falls to
// half the horizon-1 (first entry) value.
func AnalyzeDecay(horizons []int, icAt func(horizon int) float64) DecayAnalysis {
	curve := make([]DecayPoint, len(horizons))
	for i, h := range horizons {
		curve[i] = DecayPoint{Horizon: h, IC: icAt(h)}
	}

	analysis := DecayAnalysis{Curve: curve, HalfLife: math.NaN()}

	if len(curve) == 0 {
		return analysis
	}

	maxIdx := -1
	for i, p := range curve {
		if math.IsNaN(p.IC) {
			continue
		}
		if maxIdx == -1 || math.Abs(p.IC) > math.Abs(curve[maxIdx].IC) {
			maxIdx = i
		}
	}
	if maxIdx >= 0 {
		analysis.MaxICHorizon = curve[maxIdx].Horizon
		analysis.MaxIC = curve[maxIdx].IC
	} else {
		analysis.MaxIC = math.NaN()
	}

	analysis.IsMonotonic = true
	for i := 0; i+1 < len(curve); i++ {
		if math.Abs(curve[i].IC) < math.Abs(curve[i+1].IC) {
			analysis.IsMonotonic = false
			break
		}
	}

	initialIC := math.Abs(curve[0].IC)
	halfIC := initialIC / 2
	for i := 0; i+1 < len(curve); i++ {
		ic1, ic2 := math.Abs(curve[i].IC), math.Abs(curve[i+1].IC)
		if ic1 >= halfIC && ic2 <= halfIC && ic1 != ic2 {
			h1, h2 := float64(curve[i].Horizon), float64(curve[i+1].Horizon)
			weight := (ic1 - halfIC) / (ic1 - ic2)
			analysis.HalfLife = h1 + weight*(h2-h1)
			analysis.HasHalfLife = true
			break
		}
	}

	return analysis
}
