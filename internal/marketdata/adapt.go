package marketdata

import (
	"context"
	"math"
	"time"

	"tarifa/internal/panel"
)

// FetchPanelRows pulls daily prices and the latest annual fundamentals for
// symbol and merges them into one Row per trading day. Fundamentals are
// forward-filled onto every price row on or after their filing date, so a
// caller reading the panel AsOf any date sees the most recently reported
// figures without needing to re-fetch per date.
func (c *Client) FetchPanelRows(ctx context.Context, symbol string, from, to string, fundamentalPeriods int) ([]panel.Row, error) {
	prices, err := c.HistoricalPrices(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	income, err := c.IncomeStatements(ctx, symbol, PeriodAnnual, fundamentalPeriods)
	if err != nil {
		c.logger.WarnContext(ctx, "income statements unavailable", "symbol", symbol, "error", err)
		income = nil
	}
	balance, err := c.BalanceSheets(ctx, symbol, PeriodAnnual, fundamentalPeriods)
	if err != nil {
		c.logger.WarnContext(ctx, "balance sheets unavailable", "symbol", symbol, "error", err)
		balance = nil
	}
	cashflow, err := c.CashFlowStatements(ctx, symbol, PeriodAnnual, fundamentalPeriods)
	if err != nil {
		c.logger.WarnContext(ctx, "cash flow statements unavailable", "symbol", symbol, "error", err)
		cashflow = nil
	}
	quote, err := c.Quote(ctx, symbol)
	if err != nil {
		c.logger.WarnContext(ctx, "quote unavailable", "symbol", symbol, "error", err)
	}

	rows := make([]panel.Row, 0, len(prices))
	for _, p := range prices {
		d, perr := time.Parse("2006-01-02", p.Date)
		if perr != nil {
			continue
		}

		row := panel.Row{
			Symbol:    symbol,
			Date:      d,
			Close:     p.Close,
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Volume:    p.Volume,
			MarketCap: math.NaN(),
		}

		if quote.MarketCap != 0 {
			row.MarketCap = quote.MarketCap
		}

		if inc := latestAsOf(income, d); inc != nil {
			row.NetIncome = inc.NetIncome
			row.Revenue = inc.Revenue
			row.GrossProfit = inc.GrossProfit
			row.OperatingIncome = inc.OperatingIncome
		} else {
			row.NetIncome, row.Revenue, row.GrossProfit, row.OperatingIncome = nanQuad()
		}

		if bs := latestBalanceAsOf(balance, d); bs != nil {
			row.TotalAssets = bs.TotalAssets
			row.TotalStockholdersEquity = bs.TotalStockholdersEquity
			row.BookValue = bs.TotalStockholdersEquity
		} else {
			row.TotalAssets, row.TotalStockholdersEquity, row.BookValue = math.NaN(), math.NaN(), math.NaN()
		}

		if cf := latestCashFlowAsOf(cashflow, d); cf != nil {
			row.FreeCashFlow = cf.FreeCashFlow
		} else {
			row.FreeCashFlow = math.NaN()
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func nanQuad() (float64, float64, float64, float64) {
	n := math.NaN()
	return n, n, n, n
}

func latestAsOf(statements []IncomeStatement, asOf time.Time) *IncomeStatement {
	var best *IncomeStatement
	var bestDate time.Time
	for i := range statements {
		d, err := time.Parse("2006-01-02", statements[i].Date)
		if err != nil || d.After(asOf) {
			continue
		}
		if best == nil || d.After(bestDate) {
			best = &statements[i]
			bestDate = d
		}
	}
	return best
}

func latestBalanceAsOf(statements []BalanceSheet, asOf time.Time) *BalanceSheet {
	var best *BalanceSheet
	var bestDate time.Time
	for i := range statements {
		d, err := time.Parse("2006-01-02", statements[i].Date)
		if err != nil || d.After(asOf) {
			continue
		}
		if best == nil || d.After(bestDate) {
			best = &statements[i]
			bestDate = d
		}
	}
	return best
}

func latestCashFlowAsOf(statements []CashFlowStatement, asOf time.Time) *CashFlowStatement {
	var best *CashFlowStatement
	var bestDate time.Time
	for i := range statements {
		d, err := time.Parse("2006-01-02", statements[i].Date)
		if err != nil || d.After(asOf) {
			continue
		}
		if best == nil || d.After(bestDate) {
			best = &statements[i]
			bestDate = d
		}
	}
	return best
}
