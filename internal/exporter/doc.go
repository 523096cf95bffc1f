// Package exporter writes research and backtest output to disk.
//
// CSVWriter covers plain CSV/TSV output: headers, append mode, streaming
// for large record sets, and a UTF-8 BOM for spreadsheet compatibility.
//
// ReportWriter covers workbook output: backtest and evaluator results
// written as .xlsx, one sheet per result, for analysts who want the
// numbers in a spreadsheet rather than piped through another tool.
package exporter
