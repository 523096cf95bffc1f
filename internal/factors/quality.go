package factors

import (
	"math"

	"tarifa/internal/panel"
)

// NewReturnOnEquity builds return_on_equity = net_income /
// total_stockholders_equity, requiring a positive denominator.
func NewReturnOnEquity(cfg Config) Factor {
	return fundamentalFactor{
		winsorTail:  tailFromConfig(cfg),
		name:        "return_on_equity",
		columns:     []string{panel.ColNetIncome, panel.ColTotalStockholdersEquity},
		numerator:   func(r panel.Row) float64 { return r.NetIncome },
		denominator: func(r panel.Row) float64 { return r.TotalStockholdersEquity },
		denomValid:  func(x float64) bool { return x > 0 },
	}
}

// NewReturnOnAssets builds return_on_assets = net_income / total_assets,
// requiring a positive denominator.
func NewReturnOnAssets(cfg Config) Factor {
	return fundamentalFactor{
		winsorTail:  tailFromConfig(cfg),
		name:        "return_on_assets",
		columns:     []string{panel.ColNetIncome, panel.ColTotalAssets},
		numerator:   func(r panel.Row) float64 { return r.NetIncome },
		denominator: func(r panel.Row) float64 { return r.TotalAssets },
		denomValid:  func(x float64) bool { return x > 0 },
	}
}

// MarginKind selects the numerator for ProfitMargins.
type MarginKind int

const (
	GrossMargin MarginKind = iota
	OperatingMargin
	NetMargin
)

const marginEpsilon = 1e-10

// NewProfitMargins builds a profit-margin factor: numerator is gross
// profit, operating income, or net income (per kind); denominator is
// revenue, requiring |revenue| > epsilon.
func NewProfitMargins(cfg Config, kind MarginKind) Factor {
	var name, numeratorCol string
	var numerator func(panel.Row) float64
	switch kind {
	case GrossMargin:
		name, numeratorCol = "gross_profit_margin", panel.ColGrossProfit
		numerator = func(r panel.Row) float64 { return r.GrossProfit }
	case OperatingMargin:
		name, numeratorCol = "operating_profit_margin", panel.ColOperatingIncome
		numerator = func(r panel.Row) float64 { return r.OperatingIncome }
	default:
		name, numeratorCol = "net_profit_margin", panel.ColNetIncome
		numerator = func(r panel.Row) float64 { return r.NetIncome }
	}

	return fundamentalFactor{
		winsorTail:  tailFromConfig(cfg),
		name:        name,
		columns:     []string{numeratorCol, panel.ColRevenue},
		numerator:   numerator,
		denominator: func(r panel.Row) float64 { return r.Revenue },
		denomValid:  func(x float64) bool { return math.Abs(x) > marginEpsilon },
	}
}
