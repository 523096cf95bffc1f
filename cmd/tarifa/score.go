package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tarifa/internal/config"
	"tarifa/internal/factors"
	"tarifa/internal/infrastructure"

	"go.opentelemetry.io/otel/trace"
)

func runScore(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders, args []string) error {
	fs := flagSet("score")
	dateStr := fs.String("date", "", "decision date YYYY-MM-DD (default: latest in panel)")
	raw := fs.Bool("raw", false, "print raw pre-standardization values instead of z-scores")
	csvPath := fs.String("csv", "", "local CSV panel (skips the market-data fetch)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("score requires a signal name")
	}
	name := rest[0]
	symbols := rest[1:]

	factor, err := factors.New(name, factorConfig(cfg))
	if err != nil {
		return err
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)
	from := time.Now().AddDate(-2, 0, 0)
	to := time.Now()
	if *dateStr != "" {
		d, err := parseDate(*dateStr)
		if err != nil {
			return err
		}
		to = d
	}

	p, err := loadPanel(ctx, cfg, logger, *csvPath, symbols, from, to)
	if err != nil {
		return err
	}

	decisionDate := to
	if *dateStr == "" {
		dates := p.Rows()
		if len(dates) == 0 {
			return fmt.Errorf("empty panel")
		}
		// Rows are ordered by (symbol, date), so the latest date must be searched for.
		decisionDate = dates[0].Date
		for _, r := range dates[1:] {
			if r.Date.After(decisionDate) {
				decisionDate = r.Date
			}
		}
	}

	metrics := researchMetrics(logger, providers)
	if providers != nil && providers.Tracer != nil {
		var span trace.Span
		ctx, span = providers.Tracer.Start(ctx, "score."+name)
		defer span.End()
	}

	computeStart := time.Now()
	scores, err := factor.Score(p, decisionDate)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	if metrics != nil {
		dropped := len(p.Symbols()) - len(scores)
		if dropped < 0 {
			dropped = 0
		}
		infrastructure.RecordFactorComputation(ctx, metrics, name, time.Since(computeStart), len(scores), dropped)
	}

	fmt.Printf("%s at %s\n", name, decisionDate.Format(dateLayout))
	for _, s := range scores {
		if *raw {
			row, ok := p.LatestRow(s.Symbol, decisionDate)
			if ok {
				fmt.Printf("%-8s %.6f (close=%.4f)\n", s.Symbol, s.Value, row.Close)
				continue
			}
		}
		fmt.Printf("%-8s %.6f\n", s.Symbol, s.Value)
	}

	return nil
}

// factorConfig translates the layered config's Factors section into the
// factors.Config every registry constructor consumes.
func factorConfig(cfg *config.Config) factors.Config {
	return factors.Config{
		WinsorizeEnabled:   cfg.Factors.WinsorizeDefault,
		WinsorizePct:       cfg.Factors.WinsorizePct,
		ShortTermLookback:  cfg.Factors.ShortTermLookback,
		MediumTermLookback: cfg.Factors.MediumTermLookback,
		LongTermLookback:   cfg.Factors.LongTermLookback,
		LongTermSkip:       cfg.Factors.LongTermSkip,
	}
}
