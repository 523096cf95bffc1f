package exporter

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tarifa/internal/backtest"
)

// ReportWriter writes research output as .xlsx workbooks, for analysts who
// want the numbers in a spreadsheet rather than piped through another tool.
type ReportWriter struct {
	reportsDir string
}

// NewReportWriter builds a ReportWriter rooted at the given reports directory.
func NewReportWriter(reportsDir string) *ReportWriter {
	return &ReportWriter{reportsDir: reportsDir}
}

// WriteBacktestReport writes one workbook for a backtest Result: a summary
// sheet with the headline metrics, and a periods sheet with the full return,
// cumulative-return, and IC history series.
func (w *ReportWriter) WriteBacktestReport(filename string, signalName string, result backtest.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	f.SetSheetName("Sheet1", summarySheet)

	summaryRows := [][2]interface{}{
		{"signal", signalName},
		{"total return", result.TotalReturn},
		{"annualized return", result.AnnualizedReturn},
		{"annualized volatility", result.AnnualizedVolatility},
		{"sharpe ratio", result.SharpeRatio},
		{"max drawdown", result.MaxDrawdown},
		{"avg turnover", result.AvgTurnover},
		{"total transaction costs", result.TotalTransactionCosts},
		{"rebalances", result.NTrades},
	}
	for i, row := range summaryRows {
		r := i + 1
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", r), row[0]); err != nil {
			return fmt.Errorf("writing summary row %d: %w", r, err)
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", r), row[1]); err != nil {
			return fmt.Errorf("writing summary row %d: %w", r, err)
		}
	}

	const periodsSheet = "Periods"
	if _, err := f.NewSheet(periodsSheet); err != nil {
		return fmt.Errorf("creating periods sheet: %w", err)
	}
	headers := []string{"period", "return", "cumulative_return", "ic"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(periodsSheet, cell, h); err != nil {
			return fmt.Errorf("writing periods header: %w", err)
		}
	}
	for i := range result.Returns {
		row := i + 2
		values := []interface{}{i, result.Returns[i], result.CumulativeReturns[i]}
		if i < len(result.ICHistory) {
			values = append(values, result.ICHistory[i])
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(periodsSheet, cell, v); err != nil {
				return fmt.Errorf("writing periods row %d: %w", row, err)
			}
		}
	}

	f.SetActiveSheet(0)
	return w.save(f, filename)
}

// WriteICReport writes a single-sheet workbook for an IC series, one row
// per period of the evaluator's horizon IC series.
func (w *ReportWriter) WriteICReport(filename string, signalName string, ic []float64) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "IC"
	f.SetSheetName("Sheet1", sheet)
	if err := f.SetCellValue(sheet, "A1", "period"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", signalName+"_ic"); err != nil {
		return err
	}
	for i, v := range ic {
		row := i + 2
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i); err != nil {
			return fmt.Errorf("writing IC row %d: %w", row, err)
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), v); err != nil {
			return fmt.Errorf("writing IC row %d: %w", row, err)
		}
	}

	return w.save(f, filename)
}

func (w *ReportWriter) save(f *excelize.File, filename string) error {
	path := filename
	if !filepath.IsAbs(filename) {
		path = filepath.Join(w.reportsDir, filename)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}
