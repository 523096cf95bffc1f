package main

import (
	"context"
	"fmt"
	"log/slog"

	"tarifa/internal/config"
	"tarifa/internal/evaluator"
	"tarifa/internal/exporter"
	"tarifa/internal/factors"
	"tarifa/internal/infrastructure"
	"tarifa/internal/research"
)

func runResearch(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flagSet("research")
	symbolsFlag := fs.String("symbols", "", "comma-separated symbol list")
	analysis := fs.String("analysis", "all", "ic | decay | turnover | all")
	horizon := fs.Int("horizon", 21, "forward-return horizon in trading days, used by the ic analysis")
	startStr := fs.String("start", "", "start date YYYY-MM-DD")
	endStr := fs.String("end", "", "end date YYYY-MM-DD")
	csvPath := fs.String("csv", "", "local CSV panel (skips the market-data fetch)")
	out := fs.String("out", "", "also write an .xlsx workbook of the IC series to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("research requires a signal name")
	}
	name := rest[0]

	start, end, err := requireRange(*startStr, *endStr)
	if err != nil {
		return err
	}

	factor, err := factors.New(name, factorConfig(cfg))
	if err != nil {
		return err
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)
	symbols := parseSymbols(*symbolsFlag)
	p, err := loadPanel(ctx, cfg, logger, *csvPath, symbols, start, end)
	if err != nil {
		return err
	}

	universe := research.Universe(p)
	dates := research.TradingDates(p, start, end)
	scores, err := research.ScoreSeries(p, factor, universe, dates)
	if err != nil {
		return err
	}
	returns := research.ForwardReturns(p, universe, dates)
	evalCfg := evaluatorConfig(cfg)

	fmt.Printf("%s research %s -> %s\n", name, start.Format(dateLayout), end.Format(dateLayout))

	if *analysis == "ic" || *analysis == "all" {
		ic := evaluator.ICSeries(scores, returns, *horizon)
		fmt.Printf("-- IC (horizon=%d) --\n", *horizon)
		fmt.Printf("mean IC: %.4f  hit rate: %.4f  IR: %.4f  periods: %d\n",
			evaluator.MeanIC(ic, evalCfg.MinObservations), evaluator.HitRate(ic),
			evaluator.InformationRatio(ic, evalCfg), len(ic))
		printRollingIC(ic, cfg.Combiner.ICHistoryWindow, evalCfg.MinObservations)

		if *out != "" {
			paths, err := config.GetPaths()
			if err != nil {
				return fmt.Errorf("resolving report path: %w", err)
			}
			report := exporter.NewReportWriter(paths.ReportsDir)
			if err := report.WriteICReport(*out, name, ic); err != nil {
				return err
			}
		}
	}

	if *analysis == "turnover" || *analysis == "all" {
		fmt.Printf("-- turnover --\n")
		fmt.Printf("turnover: %.4f\n", evaluator.Turnover(scores))
	}

	if *analysis == "decay" || *analysis == "all" {
		decay := evaluator.AnalyzeDecay(evalCfg.Horizons, func(h int) float64 {
			return evaluator.MeanIC(evaluator.ICSeries(scores, returns, h), evalCfg.MinObservations)
		})
		fmt.Printf("-- decay curve --\n")
		for _, pt := range decay.Curve {
			fmt.Printf("  h=%-4d IC=%.4f\n", pt.Horizon, pt.IC)
		}
		fmt.Printf("max IC at horizon %d (%.4f), monotonic=%v\n", decay.MaxICHorizon, decay.MaxIC, decay.IsMonotonic)
		if decay.HasHalfLife {
			fmt.Printf("half-life: %.2f trading days\n", decay.HalfLife)
		} else {
			fmt.Printf("half-life: not reached within the horizon set\n")
		}
	}

	return nil
}

// printRollingIC reports the trailing window-sized mean IC at each period,
// the rolling-IC view `research` adds on top of eval's single summary.
func printRollingIC(ic []float64, window, minObservations int) {
	if window <= 0 || len(ic) < window {
		return
	}
	fmt.Printf("-- rolling IC (window=%d) --\n", window)
	for i := window - 1; i < len(ic); i++ {
		roll := evaluator.MeanIC(ic[i-window+1:i+1], minObservations)
		fmt.Printf("  t=%-4d rolling IC=%.4f\n", i, roll)
	}
}
