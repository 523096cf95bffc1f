// Package research glues the factor, combiner, evaluator, and backtest
// layers together: it walks a panel's trading calendar, aligns each
// layer's per-date output onto a fixed symbol universe, and hands the
// resulting time series to the evaluator and backtest engines.
package research

import (
	"math"
	"sort"
	"time"

	"tarifa/internal/combiner"
	"tarifa/internal/factors"
	"tarifa/internal/panel"
)

// TradingDates returns the sorted, deduplicated set of dates in p that
// fall within [start, end] (inclusive).
func TradingDates(p *panel.Panel, start, end time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	for _, row := range p.Rows() {
		if row.Date.Before(start) || row.Date.After(end) {
			continue
		}
		seen[row.Date] = true
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Universe returns p's symbols in stable sorted order. Every aligned
// series this package produces is indexed against this slice.
func Universe(p *panel.Panel) []string {
	return p.Symbols()
}

// ScoreSeries computes factor's score at every date in dates, aligned
// against universe: universe[i] not present in a given date's surviving
// FactorScore becomes NaN at that position. The outer slice is indexed by
// date, the inner by universe position.
func ScoreSeries(p *panel.Panel, factor factors.Factor, universe []string, dates []time.Time) ([][]float64, error) {
	position := make(map[string]int, len(universe))
	for i, s := range universe {
		position[s] = i
	}

	series := make([][]float64, len(dates))
	for t, d := range dates {
		row := make([]float64, len(universe))
		for i := range row {
			row[i] = math.NaN()
		}

		scores, err := factor.Score(p, d)
		if err != nil {
			// A whole-date failure (e.g. every symbol dropped) leaves this
			// date as all-NaN rather than aborting the series; callers that
			// need per-date failure detail should call factor.Score directly.
			series[t] = row
			continue
		}

		for _, s := range scores {
			if idx, ok := position[s.Symbol]; ok {
				row[idx] = s.Value
			}
		}
		series[t] = row
	}

	return series, nil
}

// ForwardReturns computes, for every date t and universe symbol, the
// simple return from close[t] to close[t+1], where close[t+1] is the
// symbol's next bar in the panel. An entry with no later bar stays NaN; the
// final date's row is NaN-filled unless the panel extends past that date.
func ForwardReturns(p *panel.Panel, universe []string, dates []time.Time) [][]float64 {
	byDate := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		byDate[d] = i
	}

	rows := p.BySymbol()
	returns := make([][]float64, len(dates))
	for t := range dates {
		returns[t] = make([]float64, len(universe))
		for i := range universe {
			returns[t][i] = math.NaN()
		}
	}

	for i, sym := range universe {
		symRows, ok := rows[sym]
		if !ok {
			continue
		}
		for r := 0; r+1 < len(symRows); r++ {
			t, ok := byDate[symRows[r].Date]
			if !ok {
				continue
			}
			prevClose, nextClose := symRows[r].Close, symRows[r+1].Close
			if prevClose == 0 || math.IsNaN(prevClose) || math.IsNaN(nextClose) {
				continue
			}
			returns[t][i] = nextClose/prevClose - 1
		}
	}

	return returns
}

// CombineSeries runs a Combiner independently at each date over a set of
// aligned factor score series (one series per input signal, all sharing
// the same universe/date axes), returning one combined score vector per
// date. A date where the combiner errors (e.g. every input NaN) is
// recorded as an all-NaN row rather than aborting the whole run.
func CombineSeries(c combiner.Combiner, names []string, seriesPerSignal [][][]float64) [][]float64 {
	if len(seriesPerSignal) == 0 {
		return nil
	}
	nDates := len(seriesPerSignal[0])
	out := make([][]float64, nDates)

	for t := 0; t < nDates; t++ {
		signals := make([]combiner.SignalScore, len(seriesPerSignal))
		for i, series := range seriesPerSignal {
			signals[i] = combiner.SignalScore{Name: names[i], Scores: series[t]}
		}

		combined, err := c.Combine(signals)
		if err != nil {
			n := len(seriesPerSignal[0][t])
			row := make([]float64, n)
			for i := range row {
				row[i] = math.NaN()
			}
			out[t] = row
			continue
		}
		out[t] = combined
	}

	return out
}
