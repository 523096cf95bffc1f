package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"tarifa/internal/backtest"
	"tarifa/internal/config"
	"tarifa/internal/coreerr"
	"tarifa/internal/exporter"
	"tarifa/internal/factors"
	"tarifa/internal/files"
	"tarifa/internal/infrastructure"
	"tarifa/internal/introspect"
	"tarifa/internal/progress"
	"tarifa/internal/research"

	"go.opentelemetry.io/otel/trace"
)

func runBacktest(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders, args []string) error {
	fs := flagSet("backtest")
	startStr := fs.String("start", "", "start date YYYY-MM-DD")
	endStr := fs.String("end", "", "end date YYYY-MM-DD")
	universeFlag := fs.String("universe", "csv", "sp500 | csv")
	format := fs.String("format", "text", "text | json")
	csvPath := fs.String("csv", "", "local CSV panel, required when --universe=csv")
	universeFile := fs.String("universe-file", "", "newline-delimited symbol list, required when --universe=sp500")
	longShort := fs.Bool("long-short", true, "long/short quantile portfolio instead of long-only")
	stream := fs.Bool("stream", false, "expose /healthz, /metrics, /progress while the run is in flight")
	out := fs.String("out", "", "also write an .xlsx workbook of the result to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("backtest requires a signal name")
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

	var symbols []string
	switch *universeFlag {
	case "csv":
		if *csvPath == "" {
			return fmt.Errorf("--universe=csv requires --csv")
		}
	case "sp500":
		if *universeFile == "" {
			return fmt.Errorf("--universe=sp500 requires --universe-file")
		}
		symbols, err = readSymbolFile(*universeFile)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unrecognised --universe %q", *universeFlag)
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)
	metrics := researchMetrics(logger, providers)

	var runSpan trace.Span
	if providers != nil && providers.Tracer != nil {
		ctx, runSpan = providers.Tracer.Start(ctx, "backtest."+name)
		defer runSpan.End()
	}

	var hub *progress.Hub
	var srv *introspect.Server
	var sysMetrics *infrastructure.SystemMetricsCollector
	if *stream {
		hub = progress.NewHub(logger)
		hub.Start()
		defer hub.Stop()

		var metricsHandler http.Handler
		if providers != nil {
			metricsHandler = providers.PrometheusHTTP
			if providers.Meter != nil {
				if collector, err := infrastructure.NewSystemMetricsCollector(providers.Meter, 10*time.Second); err != nil {
					logger.Warn("failed to start system metrics collector", "error", err)
				} else {
					sysMetrics = collector
					go sysMetrics.Start(ctx)
					defer sysMetrics.Stop()
				}
			}
		}

		srv = introspect.New(fmt.Sprintf(":%d", cfg.Server.Port), hub, logger, metricsHandler)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("starting introspection server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		hub.PublishPhase(ctx, "fetch", "loading panel data")
	}

	p, err := loadPanel(ctx, cfg, logger, *csvPath, symbols, start, end)
	if err != nil {
		return err
	}

	universe := research.Universe(p)
	dates := research.TradingDates(p, start, end)
	if hub != nil {
		hub.PublishPhase(ctx, "score", fmt.Sprintf("scoring %s across %d trading days", name, len(dates)))
	}

	scoreStart := time.Now()
	scores, err := research.ScoreSeries(p, factor, universe, dates)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	if metrics != nil {
		scored, dropped := countScored(scores)
		infrastructure.RecordFactorComputation(ctx, metrics, name, time.Since(scoreStart), scored, dropped)
	}
	returns := research.ForwardReturns(p, universe, dates)

	if hub != nil {
		hub.PublishPhase(ctx, "backtest", "simulating portfolio")
		for i := range dates {
			hub.PublishPeriod(ctx, "backtest", i+1, len(dates))
		}
	}

	btCfg := backtest.Config{
		RebalanceFrequency:  cfg.Backtest.RebalanceFrequency,
		TransactionCostBps:  cfg.Backtest.TransactionCostBps,
		LongShort:           *longShort,
		AnnualizationFactor: cfg.Backtest.AnnualizationFactor,
		NLong:               quantileCount(len(universe), cfg.Backtest.QuantileTop),
		NShort:              quantileCount(len(universe), cfg.Backtest.QuantileBottom),
	}
	result := backtest.Run(scores, returns, btCfg)

	if metrics != nil {
		for i := range result.Returns {
			infrastructure.RecordBacktestPeriod(ctx, metrics, i%btCfg.RebalanceFrequency == 0)
		}
	}

	if hub != nil {
		hub.PublishComplete("backtest finished")
	}

	if len(result.Returns) == 0 {
		return coreerr.NewInsufficientData("no backtest periods produced", 0, 1)
	}

	if *out != "" {
		paths, err := config.GetPaths()
		if err != nil {
			return fmt.Errorf("resolving report path: %w", err)
		}
		report := exporter.NewReportWriter(paths.ReportsDir)
		if err := report.WriteBacktestReport(*out, name, result); err != nil {
			return err
		}
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("%s backtest %s -> %s\n", name, start.Format(dateLayout), end.Format(dateLayout))
	fmt.Printf("total return:        %.4f\n", result.TotalReturn)
	fmt.Printf("annualized return:   %.4f\n", result.AnnualizedReturn)
	fmt.Printf("annualized vol:      %.4f\n", result.AnnualizedVolatility)
	fmt.Printf("sharpe ratio:        %.4f\n", result.SharpeRatio)
	fmt.Printf("max drawdown:        %.4f\n", result.MaxDrawdown)
	fmt.Printf("avg turnover:        %.4f\n", result.AvgTurnover)
	fmt.Printf("transaction costs:   %.6f\n", result.TotalTransactionCosts)
	fmt.Printf("rebalances:          %d\n", result.NTrades)

	return nil
}

// countScored sums the finite (non-NaN) entries across a whole score
// series as "scored" and the rest as "dropped", for the run-level
// factor-computation metric.
func countScored(series [][]float64) (scored, dropped int) {
	for _, row := range series {
		for _, v := range row {
			if math.IsNaN(v) {
				dropped++
			} else {
				scored++
			}
		}
	}
	return scored, dropped
}

// quantileCount converts a fractional sleeve size into a position count for
// backtest.Config.NLong/NShort.
func quantileCount(universeSize int, pct float64) *int {
	n := int(float64(universeSize) * pct)
	if n < 1 {
		n = 1
	}
	return &n
}

// readSymbolFile reads a newline-delimited universe file. If path is a
// directory, it resolves to the most recently modified CSV file inside it,
// so a user can point --universe-file at a drop directory instead of
// tracking the exact filename of the latest universe snapshot.
func readSymbolFile(path string) ([]string, error) {
	resolved, err := resolveUniverseFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, coreerr.NewDataFetch("reading universe file", err)
	}
	return parseSymbols(strings.ReplaceAll(string(data), "\n", ",")), nil
}

func resolveUniverseFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", coreerr.NewDataFetch("locating universe file", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	discovery := files.NewDiscovery(path)
	candidates, err := discovery.FindCSVFiles(".")
	if err != nil {
		return "", coreerr.NewDataFetch("scanning universe directory", err)
	}
	latest, ok := files.GetLatestFile(candidates)
	if !ok {
		return "", coreerr.NewInsufficientData("no CSV universe file found in "+path, 0, 1)
	}
	return latest.Path, nil
}
