package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// columnAliases maps a lowercased CSV header to its canonical column name.
var columnAliases = map[string]string{
	"symbol":                     ColSymbol,
	"ticker":                     ColSymbol,
	"date":                       ColDate,
	"close":                      ColClose,
	"open":                       ColOpen,
	"high":                       ColHigh,
	"low":                        ColLow,
	"volume":                     ColVolume,
	"book_value":                 ColBookValue,
	"market_cap":                 ColMarketCap,
	"marketcap":                  ColMarketCap,
	"net_income":                 ColNetIncome,
	"revenue":                    ColRevenue,
	"operating_income":           ColOperatingIncome,
	"gross_profit":               ColGrossProfit,
	"total_assets":               ColTotalAssets,
	"total_stockholders_equity":  ColTotalStockholdersEquity,
	"free_cash_flow":             ColFreeCashFlow,
}

// LoadCSV reads a panel from a CSV file. The header row's columns are
// matched case-insensitively against columnAliases; unrecognized columns
// are ignored. "symbol", "date", and "close" are required headers.
func LoadCSV(path string) (*Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening panel CSV %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads a panel from an open CSV reader, see LoadCSV.
func ReadCSV(r io.Reader) (*Panel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columnAt := make([]string, len(header))
	present := make(map[string]bool)
	for i, h := range header {
		canon, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		columnAt[i] = canon
		present[canon] = true
	}
	for _, required := range []string{ColSymbol, ColDate, ColClose} {
		if !present[required] {
			return nil, fmt.Errorf("panel CSV missing required column %q", required)
		}
	}

	columns := make([]string, 0, len(present))
	for c := range present {
		columns = append(columns, c)
	}
	builder := NewBuilder(columns)

	for lineNo := 2; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", lineNo, err)
		}

		row := Row{}
		for i, value := range record {
			if i >= len(columnAt) || columnAt[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			switch columnAt[i] {
			case ColSymbol:
				row.Symbol = value
			case ColDate:
				d, perr := parseDate(value)
				if perr != nil {
					return nil, fmt.Errorf("row %d: %w", lineNo, perr)
				}
				row.Date = d
			default:
				f, ferr := parseFloatOrNaN(value)
				if ferr != nil {
					return nil, fmt.Errorf("row %d column %s: %w", lineNo, columnAt[i], ferr)
				}
				setField(&row, columnAt[i], f)
			}
		}

		if err := builder.AddRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", lineNo, err)
		}
	}

	return builder.Build(), nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
		if d, err := time.Parse(layout, value); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", value)
}

func parseFloatOrNaN(value string) (float64, error) {
	if value == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(value, 64)
}

func setField(row *Row, column string, value float64) {
	switch column {
	case ColClose:
		row.Close = value
	case ColOpen:
		row.Open = value
	case ColHigh:
		row.High = value
	case ColLow:
		row.Low = value
	case ColVolume:
		row.Volume = value
	case ColBookValue:
		row.BookValue = value
	case ColMarketCap:
		row.MarketCap = value
	case ColNetIncome:
		row.NetIncome = value
	case ColRevenue:
		row.Revenue = value
	case ColOperatingIncome:
		row.OperatingIncome = value
	case ColGrossProfit:
		row.GrossProfit = value
	case ColTotalAssets:
		row.TotalAssets = value
	case ColTotalStockholdersEquity:
		row.TotalStockholdersEquity = value
	case ColFreeCashFlow:
		row.FreeCashFlow = value
	}
}
