package factors

import (
	"time"

	"tarifa/internal/panel"
)

// momentumFactor implements the shared shape of all three price-momentum
// variants: raw = close[D-skip]/close[D-lookback] - 1.
type momentumFactor struct {
	winsorTail
	name     string
	lookback int
	skip     int
}

// NewShortTermMomentum builds the 1-month cumulative-return factor.
func NewShortTermMomentum(cfg Config) Factor {
	return momentumFactor{winsorTail: tailFromConfig(cfg), name: "short_term_momentum", lookback: cfg.ShortTermLookback}
}

// NewMediumTermMomentum builds the 6-month cumulative-return factor.
func NewMediumTermMomentum(cfg Config) Factor {
	return momentumFactor{winsorTail: tailFromConfig(cfg), name: "medium_term_momentum", lookback: cfg.MediumTermLookback}
}

// NewLongTermMomentum builds the 12-month cumulative-return factor, skipping
// the most recent LongTermSkip trading days to avoid short-term reversal.
func NewLongTermMomentum(cfg Config) Factor {
	return momentumFactor{winsorTail: tailFromConfig(cfg), name: "long_term_momentum", lookback: cfg.LongTermLookback, skip: cfg.LongTermSkip}
}

func (f momentumFactor) Name() string             { return f.name }
func (f momentumFactor) Lookback() int             { return f.lookback }
func (f momentumFactor) RequiredColumns() []string { return []string{panel.ColClose} }

func (f momentumFactor) Score(p *panel.Panel, d time.Time) (FactorScore, error) {
	if err := p.RequireColumns(panel.ColClose); err != nil {
		return nil, err
	}

	restricted := p.AsOf(d)
	var raws []rawScore
	for _, symbol := range restricted.Symbols() {
		closes := restricted.CloseSeries(symbol, d)
		n := len(closes)
		if n < f.lookback+1 {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}

		endIdx := n - 1 - f.skip
		startIdx := n - 1 - f.lookback
		if endIdx < 0 || startIdx < 0 {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}

		startClose := closes[startIdx]
		endClose := closes[endIdx]
		if startClose == 0 {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}
		raws = append(raws, rawScore{symbol: symbol, value: endClose/startClose - 1, ok: true})
	}

	return f.finalize(raws)
}
