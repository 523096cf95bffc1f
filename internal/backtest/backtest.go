// Package backtest simulates a long/short (or long-only) quantile
// portfolio through a time series of factor scores and period returns,
// tracking turnover, transaction costs, and performance metrics.
package backtest

import (
	"math"
	"sort"

	"tarifa/internal/stats"
)

// Config is the backtest engine's configuration. It carries no start/end
// dates or initial capital; returns are unitless.
type Config struct {
	RebalanceFrequency  int
	TransactionCostBps  float64
	MaxPositionSize     float64 // advisory; the default constructor ignores it
	MinPositionSize     float64 // advisory; the default constructor ignores it
	NLong               *int
	NShort              *int
	LongShort           bool
	AnnualizationFactor float64
}

// Result is everything a backtest run reports.
type Result struct {
	Returns               []float64
	CumulativeReturns     []float64
	SharpeRatio           float64
	MaxDrawdown           float64
	TotalReturn           float64
	AnnualizedReturn      float64
	AnnualizedVolatility  float64
	AvgTurnover           float64
	ICHistory             []float64
	TotalTransactionCosts float64
	NTrades               int
}

// Run simulates the portfolio across min(len(signalScores), len(returns))
// periods. Per spec, mismatched input lengths are silently clipped to the
// shorter of the two rather than treated as an error (see Open Questions).
func Run(signalScores, returns [][]float64, cfg Config) Result {
	n := len(signalScores)
	if len(returns) < n {
		n = len(returns)
	}

	portfolioReturns := make([]float64, 0, n)
	cumulativeReturns := make([]float64, 0, n)
	var icHistory []float64
	var turnoverHistory []float64

	var currentPositions []float64
	var cumRet float64
	var totalCosts float64
	var nTrades int

	for i := 0; i < n; i++ {
		if i%cfg.RebalanceFrequency == 0 {
			newPositions := constructPortfolio(signalScores[i], cfg)

			if len(currentPositions) > 0 {
				turnover := calculateTurnover(currentPositions, newPositions)
				turnoverHistory = append(turnoverHistory, turnover)
				totalCosts += turnover * cfg.TransactionCostBps / 10000
				nTrades++
			}

			currentPositions = newPositions
		}

		var portRet float64
		if len(currentPositions) > 0 {
			portRet = portfolioReturn(currentPositions, returns[i])
		}

		portfolioReturns = append(portfolioReturns, portRet)
		cumRet = (1+cumRet)*(1+portRet) - 1
		cumulativeReturns = append(cumulativeReturns, cumRet)

		if i+1 < n {
			icHistory = append(icHistory, stats.Spearman(signalScores[i], returns[i+1]))
		}
	}

	annualization := cfg.AnnualizationFactor
	if annualization <= 0 {
		annualization = 252
	}

	totalReturn := cumRet
	var annualizedReturn float64
	if n > 0 {
		annualizedReturn = math.Pow(1+totalReturn, annualization/float64(n)) - 1
	} else {
		annualizedReturn = math.NaN()
	}

	sharpe := sharpeRatio(portfolioReturns, annualization)
	maxDD := maxDrawdown(cumulativeReturns)
	annualizedVol := annualizedVolatility(portfolioReturns, annualization)

	avgTurnover := 0.0
	if len(turnoverHistory) > 0 {
		avgTurnover = stats.Mean(turnoverHistory)
	}

	return Result{
		Returns:               portfolioReturns,
		CumulativeReturns:     cumulativeReturns,
		SharpeRatio:           sharpe,
		MaxDrawdown:           maxDD,
		TotalReturn:           totalReturn,
		AnnualizedReturn:      annualizedReturn,
		AnnualizedVolatility:  annualizedVol,
		AvgTurnover:           avgTurnover,
		ICHistory:             icHistory,
		TotalTransactionCosts: totalCosts,
		NTrades:               nTrades,
	}
}

type indexedScore struct {
	idx   int
	score float64
}

// constructPortfolio builds signed weights from one period's score vector.
// Non-finite scores are dropped. Ties preserve input index order (a stable
// sort on a descending key). When long and short windows overlap (n_long +
// n_short exceeds the surviving count), the short assignment is applied
// after the long one and overwrites it for any shared index — preserved
// intentionally, see the open question on sleeve overlap.
func constructPortfolio(scores []float64, cfg Config) []float64 {
	positions := make([]float64, len(scores))

	indexed := make([]indexedScore, 0, len(scores))
	for i, s := range scores {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			indexed = append(indexed, indexedScore{idx: i, score: s})
		}
	}
	if len(indexed) == 0 {
		return positions
	}

	sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].score > indexed[j].score })

	if cfg.LongShort {
		nLong := resolveCount(cfg.NLong, len(scores)/2)
		nShort := resolveCount(cfg.NShort, len(scores)/2)

		longWeight := 0.0
		if nLong > 0 {
			longWeight = 1.0 / float64(nLong)
		}
		take := nLong
		if take > len(indexed) {
			take = len(indexed)
		}
		for _, is := range indexed[:take] {
			positions[is.idx] = longWeight
		}

		shortWeight := 0.0
		if nShort > 0 {
			shortWeight = -1.0 / float64(nShort)
		}
		start := len(indexed) - nShort
		if start < 0 {
			start = 0
		}
		for _, is := range indexed[start:] {
			positions[is.idx] = shortWeight
		}
	} else {
		nLong := resolveCount(cfg.NLong, len(scores))
		weight := 0.0
		if nLong > 0 {
			weight = 1.0 / float64(nLong)
		}
		take := nLong
		if take > len(indexed) {
			take = len(indexed)
		}
		for _, is := range indexed[:take] {
			positions[is.idx] = weight
		}
	}

	return positions
}

func resolveCount(configured *int, fallback int) int {
	if configured != nil {
		return *configured
	}
	return fallback
}

func portfolioReturn(positions, returns []float64) float64 {
	var total float64
	n := len(positions)
	if len(returns) < n {
		n = len(returns)
	}
	for i := 0; i < n; i++ {
		pos, ret := positions[i], returns[i]
		if math.IsNaN(pos) || math.IsInf(pos, 0) || math.IsNaN(ret) || math.IsInf(ret, 0) {
			continue
		}
		total += pos * ret
	}
	return total
}

func calculateTurnover(prev, next []float64) float64 {
	var sum float64
	for i := range prev {
		sum += math.Abs(next[i] - prev[i])
	}
	return sum / 2
}

func sharpeRatio(returns []float64, annualization float64) float64 {
	finite := stats.Finite(returns)
	if len(finite) < 2 {
		return math.NaN()
	}
	std := stats.SampleStd(finite)
	if std == 0 {
		return math.NaN()
	}
	return stats.Mean(finite) / std * math.Sqrt(annualization)
}

func annualizedVolatility(returns []float64, annualization float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	std := stats.SampleStd(returns)
	return std * math.Sqrt(annualization)
}

func maxDrawdown(cumulative []float64) float64 {
	var maxDD, peak float64
	for _, cum := range cumulative {
		if cum > peak {
			peak = cum
		}
		dd := (peak - cum) / (1 + peak)
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
