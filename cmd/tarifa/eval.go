package main

import (
	"context"
	"fmt"
	"log/slog"

	"tarifa/internal/config"
	"tarifa/internal/evaluator"
	"tarifa/internal/factors"
	"tarifa/internal/infrastructure"
	"tarifa/internal/research"
)

func runEval(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flagSet("eval")
	symbolsFlag := fs.String("symbols", "", "comma-separated symbol list")
	horizon := fs.Int("horizon", 21, "forward-return horizon in trading days")
	startStr := fs.String("start", "", "start date YYYY-MM-DD")
	endStr := fs.String("end", "", "end date YYYY-MM-DD")
	csvPath := fs.String("csv", "", "local CSV panel (skips the market-data fetch)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("eval requires a signal name")
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

	ic := evaluator.ICSeries(scores, returns, *horizon)
	evalCfg := evaluatorConfig(cfg)

	fmt.Printf("%s eval %s -> %s (horizon=%d)\n", name, start.Format(dateLayout), end.Format(dateLayout), *horizon)
	fmt.Printf("mean IC:     %.4f\n", evaluator.MeanIC(ic, evalCfg.MinObservations))
	fmt.Printf("hit rate:    %.4f\n", evaluator.HitRate(ic))
	fmt.Printf("IR:          %.4f\n", evaluator.InformationRatio(ic, evalCfg))
	fmt.Printf("turnover:    %.4f\n", evaluator.Turnover(scores))

	return nil
}

func evaluatorConfig(cfg *config.Config) evaluator.Config {
	return evaluator.Config{
		MinObservations:    cfg.Factors.MinObservations,
		Annualize:          true,
		TradingDaysPerYear: int(cfg.Backtest.AnnualizationFactor),
		Horizons:           append([]int(nil), evaluator.DefaultHorizons...),
	}
}
