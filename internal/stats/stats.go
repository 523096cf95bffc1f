// Package stats provides the pure numerical primitives shared by every
// factor, combiner, and evaluator in the toolkit: cross-sectional
// standardization, winsorization, fractional ranking, Spearman rank
// correlation, and lag-k autocorrelation.
//
// Every function here is deterministic and allocation-only; none performs
// I/O or holds state across calls.
package stats

import "math"

// MinStdThreshold is the zero-variance guard used throughout the toolkit.
// Sample standard deviations at or below this are treated as degenerate.
const MinStdThreshold = 1e-10

// StandardizeResult carries the statistics computed during standardization
// so callers can invert the transform (round-trip: x = z*Std + Mean).
type StandardizeResult struct {
	Mean    float64
	Std     float64
	Applied bool
}

// Standardize z-scores xs using the sample mean and sample standard
// deviation (ddof=1) of its finite entries. Non-finite entries propagate as
// NaN in the output; they never participate in computing Mean or Std.
//
// If fewer than two finite entries exist, or the sample standard deviation
// does not exceed MinStdThreshold, the result is all zeros and Applied is
// false.
func Standardize(xs []float64) ([]float64, StandardizeResult) {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out, StandardizeResult{Mean: math.NaN(), Std: math.NaN()}
	}

	var sum float64
	var n int
	for _, x := range xs {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n < 2 {
		for i := range out {
			if math.IsInf(xs[i], 0) || math.IsNaN(xs[i]) {
				out[i] = math.NaN()
			}
		}
		mean := math.NaN()
		if n == 1 {
			mean = sum
		}
		return out, StandardizeResult{Mean: mean, Std: math.NaN()}
	}

	mean := sum / float64(n)

	var sumSq float64
	for _, x := range xs {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		d := x - mean
		sumSq += d * d
	}
	variance := sumSq / float64(n-1)
	std := math.Sqrt(variance)

	applied := std > MinStdThreshold
	for i, x := range xs {
		switch {
		case math.IsInf(x, 0) || math.IsNaN(x):
			out[i] = math.NaN()
		case applied:
			out[i] = (x - mean) / std
		default:
			out[i] = 0
		}
	}

	return out, StandardizeResult{Mean: mean, Std: std, Applied: applied}
}

// Winsorize clips the finite entries of xs to the [p, 1-p] quantile range.
// p must lie in [0, 0.5); values outside that range are clamped by the
// caller's config validation, not here. Non-finite entries pass through
// unchanged.
//
// Thresholds are picked by sorting the finite entries ascending and
// indexing at floor(n*p) and ceil(n*(1-p))-1, both clamped to [0, n-1].
func Winsorize(xs []float64, p float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)

	finite := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			finite = append(finite, x)
		}
	}
	n := len(finite)
	if n == 0 {
		return out
	}
	sortFloats(finite)

	lowIdx := int(math.Floor(float64(n) * p))
	highIdx := int(math.Ceil(float64(n)*(1-p))) - 1
	lowIdx = clampIndex(lowIdx, n)
	highIdx = clampIndex(highIdx, n)
	lower, upper := finite[lowIdx], finite[highIdx]

	for i, x := range xs {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		switch {
		case x < lower:
			out[i] = lower
		case x > upper:
			out[i] = upper
		default:
			out[i] = x
		}
	}
	return out
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

func sortFloats(xs []float64) {
	// insertion sort is adequate: winsorize operates on per-date
	// cross-sections, typically a few hundred symbols at most.
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// Ranks returns ascending fractional ranks (0-indexed, tied groups
// share the average rank of their positions). Non-finite entries receive
// NaN and do not occupy a rank slot.
func Ranks(xs []float64) []float64 {
	type indexed struct {
		idx int
		val float64
	}
	finite := make([]indexed, 0, len(xs))
	for i, x := range xs {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			finite = append(finite, indexed{idx: i, val: x})
		}
	}
	for i := 1; i < len(finite); i++ {
		v := finite[i]
		j := i - 1
		for j >= 0 && finite[j].val > v.val {
			finite[j+1] = finite[j]
			j--
		}
		finite[j+1] = v
	}

	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}

	n := len(finite)
	i := 0
	for i < n {
		j := i
		for j < n && finite[j].val == finite[i].val {
			j++
		}
		avgRank := float64(i+j-1) / 2.0
		for k := i; k < j; k++ {
			out[finite[k].idx] = avgRank
		}
		i = j
	}
	return out
}

// Spearman computes the Pearson correlation of fractional ranks of xs and
// ys after pairwise dropping entries where either side is non-finite.
// Returns NaN if fewer than two valid pairs remain or either series of
// ranks is constant.
func Spearman(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	pairX := make([]float64, 0, n)
	pairY := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		x, y := xs[i], ys[i]
		if math.IsInf(x, 0) || math.IsNaN(x) || math.IsInf(y, 0) || math.IsNaN(y) {
			continue
		}
		pairX = append(pairX, x)
		pairY = append(pairY, y)
	}
	if len(pairX) < 2 {
		return math.NaN()
	}

	rx := Ranks(pairX)
	ry := Ranks(pairY)

	var meanX, meanY float64
	for i := range rx {
		meanX += rx[i]
		meanY += ry[i]
	}
	m := float64(len(rx))
	meanX /= m
	meanY /= m

	var cov, varX, varY float64
	for i := range rx {
		dx := rx[i] - meanX
		dy := ry[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}

// Autocorr computes the lag-k autocorrelation of xs using the mean of the
// full series: numerator sums (x_i-mean)(x_{i+lag}-mean) for i in
// [0, n-lag), denominator sums (x-mean)^2 over the whole series.
// Returns NaN if the series is shorter than lag+1 or the denominator is
// zero.
func Autocorr(xs []float64, lag int) float64 {
	n := len(xs)
	if n <= lag {
		return math.NaN()
	}

	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	var numerator float64
	for i := 0; i < n-lag; i++ {
		numerator += (xs[i] - mean) * (xs[i+lag] - mean)
	}

	var denominator float64
	for _, x := range xs {
		d := x - mean
		denominator += d * d
	}
	if denominator == 0 {
		return math.NaN()
	}
	return numerator / denominator
}

// Mean returns the arithmetic mean of xs, or NaN if xs is empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStd returns the sample standard deviation (ddof=1) of xs, or NaN if
// fewer than two entries are given.
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	mean := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// Finite filters xs down to its finite entries.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
