package factors

import (
	"time"

	"tarifa/internal/panel"
)

// fundamentalFactor is the shared shape of every ratio-of-fundamentals
// factor: pull the most recent record as of D, compute numerator/denominator
// for each symbol where the denominator satisfies its precondition, and run
// the common winsorize/standardize tail. denomValid returns false to drop a
// symbol (e.g. non-positive market cap).
type fundamentalFactor struct {
	winsorTail
	name       string
	columns    []string
	numerator  func(panel.Row) float64
	denominator func(panel.Row) float64
	denomValid func(float64) bool
}

func (f fundamentalFactor) Name() string             { return f.name }
func (f fundamentalFactor) Lookback() int             { return 0 }
func (f fundamentalFactor) RequiredColumns() []string { return f.columns }

func (f fundamentalFactor) Score(p *panel.Panel, d time.Time) (FactorScore, error) {
	if err := p.RequireColumns(f.columns...); err != nil {
		return nil, err
	}

	var raws []rawScore
	for _, symbol := range p.Symbols() {
		row, ok := p.LatestRow(symbol, d)
		if !ok {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}
		denom := f.denominator(row)
		if !f.denomValid(denom) {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}
		raws = append(raws, rawScore{symbol: symbol, value: f.numerator(row) / denom, ok: true})
	}

	return f.finalize(raws)
}

// NewBookToPrice builds book_to_price = book_value / market_cap, requiring
// market_cap > 0.
func NewBookToPrice(cfg Config) Factor {
	return fundamentalFactor{
		winsorTail: tailFromConfig(cfg),
		name:       "book_to_price",
		columns:    []string{panel.ColBookValue, panel.ColMarketCap},
		numerator:  func(r panel.Row) float64 { return r.BookValue },
		denominator: func(r panel.Row) float64 { return r.MarketCap },
		denomValid: func(x float64) bool { return x > 0 },
	}
}

// NewEarningsYield builds earnings_yield = net_income / market_cap.
func NewEarningsYield(cfg Config) Factor {
	return fundamentalFactor{
		winsorTail: tailFromConfig(cfg),
		name:       "earnings_yield",
		columns:    []string{panel.ColNetIncome, panel.ColMarketCap},
		numerator:  func(r panel.Row) float64 { return r.NetIncome },
		denominator: func(r panel.Row) float64 { return r.MarketCap },
		denomValid: func(x float64) bool { return x > 0 },
	}
}

// NewFCFYield builds fcf_yield = free_cash_flow / market_cap.
func NewFCFYield(cfg Config) Factor {
	return fundamentalFactor{
		winsorTail: tailFromConfig(cfg),
		name:       "fcf_yield",
		columns:    []string{panel.ColFreeCashFlow, panel.ColMarketCap},
		numerator:  func(r panel.Row) float64 { return r.FreeCashFlow },
		denominator: func(r panel.Row) float64 { return r.MarketCap },
		denomValid: func(x float64) bool { return x > 0 },
	}
}
