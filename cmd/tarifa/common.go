// Command tarifa is the research-toolkit CLI: it scores factors over a
// symbol panel, evaluates their predictive power, combines them into a
// composite alpha, and runs a long/short backtest. Data comes from either
// a local CSV panel or the Financial Modeling Prep API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"tarifa/internal/config"
	"tarifa/internal/coreerr"
	"tarifa/internal/files"
	"tarifa/internal/infrastructure"
	"tarifa/internal/marketdata"
	"tarifa/internal/panel"
	"tarifa/internal/validation"

	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, logger, providers := bootstrap()
	if providers != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.Warn("opentelemetry shutdown failed", "error", err)
			}
		}()
	}

	var err error
	switch os.Args[1] {
	case "signals":
		err = runSignals(cfg, logger, os.Args[2:])
	case "score":
		err = runScore(cfg, logger, providers, os.Args[2:])
	case "eval":
		err = runEval(cfg, logger, os.Args[2:])
	case "research":
		err = runResearch(cfg, logger, os.Args[2:])
	case "combine":
		err = runCombine(cfg, logger, os.Args[2:])
	case "backtest":
		err = runBacktest(cfg, logger, providers, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unrecognised command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err == nil {
		return
	}

	if isFatal(err) {
		logger.Error("fatal", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Semantic failures (insufficient data, nothing to report) keep the
	// shell pipeline alive: print the diagnostic and exit clean.
	fmt.Fprintf(os.Stderr, "warning: %v\n", err)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tarifa <command> [flags]

commands:
  signals    --category <name> --verbose
  score      <signal> <symbols...> --date YYYY-MM-DD --raw
  eval       <signal> --symbols a,b,c --horizon N --start D --end D
  research   <signal> --analysis {ic,decay,turnover,all} --horizon N --start D --end D
  combine    --signals a,b,c --method {equal,ic} <symbols...> --date D
  backtest   <signal> --start D --end D --universe {sp500|csv} --format {text,json}`)
}

// isFatal decides the CLI exit code: unrecognised signal, a date parse
// failure, or a complete inability to assemble any data is fatal (exit 1).
// Everything else -- insufficient history for a subset of symbols, a
// factor or combiner finding no surviving symbols at one date -- is
// semantic and keeps the process exiting 0.
func isFatal(err error) bool {
	return coreerr.Is(err, coreerr.SignalNotFound) ||
		coreerr.Is(err, coreerr.MissingColumn) ||
		coreerr.Is(err, coreerr.DataFetch) ||
		strings.Contains(err.Error(), "parsing date")
}

func bootstrap() (*config.Config, *slog.Logger, *infrastructure.OTelProviders) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
		slog.Warn("failed to load config, using defaults", "error", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = slog.Default()
		logger.Warn("failed to initialize logger, using default", "error", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		logger.Warn("failed to initialize opentelemetry, spans and metrics disabled", "error", err)
		providers = nil
	}

	return cfg, logger, providers
}

// researchMetrics builds the research-run counters/histograms from
// providers' meter, or returns nil if providers is unavailable -- every
// call site treats a nil *infrastructure.ResearchMetrics as "don't record".
func researchMetrics(logger *slog.Logger, providers *infrastructure.OTelProviders) *infrastructure.ResearchMetrics {
	if providers == nil || providers.Meter == nil {
		return nil
	}
	metrics, err := infrastructure.CreateResearchMetrics(providers.Meter)
	if err != nil {
		logger.Warn("failed to create research metrics", "error", err)
		return nil
	}
	return metrics
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

// requireRange parses --start/--end flags, defaulting to the trailing two
// years when omitted.
func requireRange(startStr, endStr string) (start, end time.Time, err error) {
	end = time.Now()
	if endStr != "" {
		if end, err = parseDate(endStr); err != nil {
			return
		}
	}
	start = end.AddDate(-2, 0, 0)
	if startStr != "" {
		if start, err = parseDate(startStr); err != nil {
			return
		}
	}
	if !start.Before(end) {
		err = fmt.Errorf("start date %s must be before end date %s", startStr, endStr)
	}
	return
}

func parseSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// loadPanel assembles a panel either from a local CSV file or by fetching
// symbols from the configured market-data provider between from and to.
func loadPanel(ctx context.Context, cfg *config.Config, logger *slog.Logger, csvPath string, symbols []string, from, to time.Time) (*panel.Panel, error) {
	if csvPath != "" {
		if err := validation.NewFileValidator(logger).ValidateCSVFile(csvPath); err != nil {
			return nil, coreerr.NewInvalidData("invalid --csv path", err)
		}
		return panel.LoadCSV(csvPath)
	}

	if len(symbols) == 0 {
		return nil, coreerr.NewInvalidData("no symbols and no --csv given", nil)
	}

	if cached, ok := loadCachedSnapshot(logger, to); ok {
		return cached, nil
	}

	client, err := marketdata.NewFromEnv(marketdata.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	fromStr, toStr := from.Format(dateLayout), to.Format(dateLayout)
	builder := panel.NewBuilder([]string{
		panel.ColOpen, panel.ColHigh, panel.ColLow, panel.ColVolume,
		panel.ColBookValue, panel.ColMarketCap, panel.ColNetIncome, panel.ColRevenue,
		panel.ColOperatingIncome, panel.ColGrossProfit, panel.ColTotalAssets,
		panel.ColTotalStockholdersEquity, panel.ColFreeCashFlow,
	})

	// Fetch the universe concurrently -- each symbol is an independent HTTP
	// round trip to the provider -- then feed the builder sequentially since
	// it is not safe for concurrent use.
	perSymbol := make([][]panel.Row, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			rows, err := client.FetchPanelRows(gctx, sym, fromStr, toStr, 8)
			if err != nil {
				logger.WarnContext(gctx, "symbol fetch failed, skipping", "symbol", sym, "error", err)
				return nil
			}
			perSymbol[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fetched int
	for i, sym := range symbols {
		if len(perSymbol[i]) == 0 {
			continue
		}
		for _, r := range perSymbol[i] {
			if err := builder.AddRow(r); err != nil {
				logger.WarnContext(ctx, "dropping row", "symbol", sym, "error", err)
				continue
			}
		}
		fetched++
	}

	if fetched == 0 {
		return nil, coreerr.NewDataFetch("no symbol could be fetched from the market data provider", nil)
	}

	return builder.Build(), nil
}

// loadCachedSnapshot looks for a panel_YYYY_MM_DD.csv file in the cache
// directory for the requested end date and, if present and still fresh,
// loads it instead of hitting the market-data provider.
func loadCachedSnapshot(logger *slog.Logger, to time.Time) (*panel.Panel, bool) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, false
	}

	discovery := files.NewDiscovery(paths.CacheDir)
	snapshots, err := discovery.FindPanelSnapshotFiles(".")
	if err != nil {
		return nil, false
	}

	key := to.Format("2006_01_02")
	file, ok := snapshots[key]
	if !ok {
		return nil, false
	}
	if time.Since(file.ModTime) > config.DataCacheDuration {
		return nil, false
	}

	p, err := panel.LoadCSV(file.Path)
	if err != nil {
		logger.Warn("failed to load cached panel snapshot, will fetch live", "path", file.Path, "error", err)
		return nil, false
	}
	logger.Info("loaded panel from cache", "path", file.Path)
	return p, true
}

func flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}
