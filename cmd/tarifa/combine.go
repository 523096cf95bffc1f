package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tarifa/internal/combiner"
	"tarifa/internal/config"
	"tarifa/internal/coreerr"
	"tarifa/internal/factors"
	"tarifa/internal/infrastructure"
	"tarifa/internal/research"
	"tarifa/internal/stats"
)

func runCombine(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flagSet("combine")
	signalsFlag := fs.String("signals", "", "comma-separated signal names")
	method := fs.String("method", "equal", "equal | ic")
	dateStr := fs.String("date", "", "combination date YYYY-MM-DD (default: latest in panel)")
	csvPath := fs.String("csv", "", "local CSV panel (skips the market-data fetch)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	names := parseSignalNames(*signalsFlag)
	if len(names) == 0 {
		return fmt.Errorf("combine requires --signals")
	}
	symbols := fs.Args()

	factorList := make([]factors.Factor, len(names))
	for i, n := range names {
		f, err := factors.New(n, factorConfig(cfg))
		if err != nil {
			return err
		}
		factorList[i] = f
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)
	lookback := cfg.Combiner.ICHistoryWindow
	to := time.Now()
	if *dateStr != "" {
		d, err := parseDate(*dateStr)
		if err != nil {
			return err
		}
		to = d
	}
	from := to.AddDate(0, -6, 0)

	p, err := loadPanel(ctx, cfg, logger, *csvPath, symbols, from, to)
	if err != nil {
		return err
	}

	universe := research.Universe(p)
	dates := research.TradingDates(p, from, to)
	if len(dates) == 0 {
		return coreerr.NewInsufficientData("no trading dates in range", 0, 1)
	}
	decisionDate := dates[len(dates)-1]

	seriesPerSignal := make([][][]float64, len(names))
	for i, f := range factorList {
		series, err := research.ScoreSeries(p, f, universe, dates)
		if err != nil {
			return err
		}
		seriesPerSignal[i] = series
	}
	returns := research.ForwardReturns(p, universe, dates)

	var comb combiner.Combiner
	if *method == "ic" {
		icWeighted := combiner.NewICWeighted(lookback, cfg.Combiner.DecayFactor)
		history := lookback
		if history > len(dates)-1 {
			history = len(dates) - 1
		}
		for t := len(dates) - 1 - history; t < len(dates)-1; t++ {
			if t < 0 {
				continue
			}
			for i, name := range names {
				ic := onePeriodIC(seriesPerSignal[i][t], returns, t)
				icWeighted.UpdateIC(name, ic)
			}
		}
		comb = icWeighted
	} else {
		comb = combiner.NewEqualWeight()
	}

	lastIdx := len(dates) - 1
	signals := make([]combiner.SignalScore, len(names))
	for i, name := range names {
		signals[i] = combiner.SignalScore{Name: name, Scores: seriesPerSignal[i][lastIdx]}
	}

	combined, err := comb.Combine(signals)
	if err != nil {
		return err
	}

	fmt.Printf("combined(%v, method=%s) at %s\n", names, *method, decisionDate.Format(dateLayout))
	for i, sym := range universe {
		fmt.Printf("%-8s %.6f\n", sym, combined[i])
	}

	return nil
}

func onePeriodIC(scores []float64, returns [][]float64, t int) float64 {
	if t+1 >= len(returns) {
		return 0
	}
	return stats.Spearman(scores, returns[t+1])
}

// parseSignalNames splits a comma list without the upper-casing parseSymbols
// applies: factor names are lowercase_with_underscores, unlike ticker symbols.
func parseSignalNames(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
