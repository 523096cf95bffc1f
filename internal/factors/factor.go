// Package factors implements the per-asset scoring contract: every factor
// restricts a panel to a decision date, computes a raw scalar per symbol,
// drops symbols that fail a precondition, and optionally winsorizes and
// standardizes the survivors.
package factors

import (
	"math"
	"sort"
	"time"

	"tarifa/internal/coreerr"
	"tarifa/internal/panel"
	"tarifa/internal/stats"
)

// Score pairs one symbol with its computed value. Engine returns scores
// sorted by Symbol ascending so output order is stable across runs.
type Score struct {
	Symbol string
	Value  float64
}

// FactorScore is the aligned (symbol, score) table a factor produces for
// one decision date.
type FactorScore []Score

// Symbols returns the symbols in this FactorScore's stable order.
func (fs FactorScore) Symbols() []string {
	out := make([]string, len(fs))
	for i, s := range fs {
		out[i] = s.Symbol
	}
	return out
}

// Values returns the scores in the same order as Symbols.
func (fs FactorScore) Values() []float64 {
	out := make([]float64, len(fs))
	for i, s := range fs {
		out[i] = s.Value
	}
	return out
}

// Config bundles the tunables every factor shares: winsorization and the
// lookback windows for the price-momentum family. The registry resolves
// this once at construction time; each factor variant owns the slice of it
// relevant to itself.
type Config struct {
	WinsorizeEnabled   bool
	WinsorizePct       float64
	ShortTermLookback  int
	MediumTermLookback int
	LongTermLookback   int
	LongTermSkip       int
}

// Factor is the uniform contract every signal implements.
type Factor interface {
	// Name is the factor's stable string id.
	Name() string
	// Lookback is the minimum trading days of history required before the
	// decision date.
	Lookback() int
	// RequiredColumns lists the panel columns that must be present.
	RequiredColumns() []string
	// Score produces a FactorScore at decision date d.
	Score(p *panel.Panel, d time.Time) (FactorScore, error)
}

// rawScore is a symbol's raw value before winsorization/standardization,
// or a reason it was dropped.
type rawScore struct {
	symbol string
	value  float64
	ok     bool
}

// winsorTail holds the construction-time winsorization settings shared by
// every factor; embedding it gives each variant finalize() for free.
type winsorTail struct {
	winsorizeEnabled bool
	winsorizePct     float64
}

// finalize applies the common tail of the factor algorithm: drop symbols
// whose raw value is non-finite, winsorize the survivors (if enabled),
// cross-sectionally standardize, and return them sorted by symbol.
func (w winsorTail) finalize(raws []rawScore) (FactorScore, error) {
	type survivor struct {
		symbol string
		value  float64
	}
	survivors := make([]survivor, 0, len(raws))
	for _, r := range raws {
		if !r.ok || isNonFinite(r.value) {
			continue
		}
		survivors = append(survivors, survivor{symbol: r.symbol, value: r.value})
	}

	if len(survivors) == 0 {
		return nil, coreerr.NewInsufficientData("no symbols survived precondition filtering", 0, 1)
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].symbol < survivors[j].symbol })

	values := make([]float64, len(survivors))
	for i, s := range survivors {
		values[i] = s.value
	}

	if w.winsorizeEnabled {
		values = stats.Winsorize(values, w.winsorizePct)
	}
	standardized, _ := stats.Standardize(values)

	out := make(FactorScore, len(survivors))
	for i, s := range survivors {
		out[i] = Score{Symbol: s.symbol, Value: standardized[i]}
	}
	return out, nil
}

func isNonFinite(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}

func tailFromConfig(cfg Config) winsorTail {
	return winsorTail{winsorizeEnabled: cfg.WinsorizeEnabled, winsorizePct: cfg.WinsorizePct}
}
