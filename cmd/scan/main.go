package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bighogz/insider-dip/internal/aggregator"
	"github.com/bighogz/insider-dip/internal/cache"
	"github.com/bighogz/insider-dip/internal/chart"
	"github.com/bighogz/insider-dip/internal/config"
	"github.com/bighogz/insider-dip/internal/finder"
	"github.com/bighogz/insider-dip/internal/fmp"
	"github.com/bighogz/insider-dip/internal/gateway"
	"github.com/bighogz/insider-dip/internal/httpclient"
	"github.com/bighogz/insider-dip/internal/logger"
	"github.com/bighogz/insider-dip/internal/report"
	"github.com/bighogz/insider-dip/internal/sp500"
	"github.com/bighogz/insider-dip/internal/telemetry"
	"github.com/bighogz/insider-dip/internal/yahoo"
)

type flags struct {
	threshold   float64
	priceDays   int
	insiderDays int
	topN        int
	symbols     string
	noCache     bool
	noPlot      bool
	trace       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Screen S&P 500 stocks that fell sharply while executives bought shares",
		Long: `scan fetches recent daily prices for the S&P 500, keeps the stocks whose
close fell at least as far as the threshold, and reports those where a CEO,
CFO, COO or director made an open-market purchase in the insider window.
Results go to results/candidates.csv and a chart of the top names to plots/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	d := config.Default()
	fl := cmd.Flags()
	fl.Float64Var(&f.threshold, "threshold", d.PriceDropThreshold, "price change threshold in percent, <= 0 (-10 keeps stocks down 10% or more)")
	fl.IntVar(&f.priceDays, "price-days", d.PriceLookbackDays, "days of price history")
	fl.IntVar(&f.insiderDays, "insider-days", d.InsiderLookbackDays, "days of insider transactions")
	fl.IntVar(&f.topN, "top", d.TopN, "number of candidates to plot")
	fl.StringVar(&f.symbols, "symbols", "", "comma-separated symbols to screen instead of the S&P 500")
	fl.BoolVar(&f.noCache, "no-cache", false, "bypass the on-disk cache")
	fl.BoolVar(&f.noPlot, "no-plot", false, "skip the chart")
	fl.BoolVar(&f.trace, "trace", false, "print pipeline trace spans to stderr")
	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load()
	if err != nil {
		logger.InitWithFallback(logger.Config{Level: config.Get("LOG_LEVEL"), Format: config.Get("LOG_FORMAT")})
		log.Error().Err(err).Msg("configuration")
		return err
	}
	applyFlags(cmd, cfg, f)
	if err := cfg.Validate(); err != nil {
		logger.InitWithFallback(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		log.Error().Err(err).Msg("configuration")
		return err
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, FilePath: cfg.LogFile}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	shutdown, err := telemetry.Setup(cfg.TraceEnabled, os.Stderr)
	if err != nil {
		log.Error().Err(err).Msg("tracing setup failed")
		return err
	}
	defer shutdown(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store cache.Store
	if cfg.CacheEnabled {
		store, err = cache.Open(cfg.CacheBackend, cfg.CacheDir, cfg.CacheMaxAge)
		if err != nil {
			log.Error().Err(err).Msg("opening cache")
			return err
		}
		defer store.Close()
	}

	httpc := httpclient.New(cfg.HTTPTimeout)
	fmpClient := fmp.New(cfg.FMPAPIKey,
		fmp.WithBaseURL(cfg.FMPBaseURL),
		fmp.WithHTTPClient(httpc),
		fmp.WithRateLimit(cfg.RequestsPerSecond, 1),
	)

	var prices gateway.PriceSource = fmpClient
	if cfg.PriceProvider == "yahoo" {
		prices = yahoo.New()
	}

	universe := sp500.NewLoader(fmpClient, store)
	universe.HTTP = httpc

	var plotter finder.Plotter
	if !f.noPlot {
		plotter = chart.NewRenderer(cfg.PlotsDir)
	}

	fd := finder.New(finder.Options{
		Threshold:   cfg.PriceDropThreshold,
		PriceDays:   cfg.PriceLookbackDays,
		InsiderDays: cfg.InsiderLookbackDays,
		TopN:        cfg.TopN,
		Symbols:     splitSymbols(f.symbols),
	}, universe, gateway.New(prices, fmpClient, store, cfg.Workers), report.NewWriter(cfg.ResultsDir), plotter)

	res, err := fd.Find(ctx)
	if errors.Is(err, aggregator.ErrNoCandidates) {
		log.Info().Msg("No matching stocks found.")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("screen failed")
		return err
	}

	fmt.Printf("\nTop %d candidates by ownership change:\n", len(res.Top))
	for _, c := range res.Top {
		fmt.Printf("  %-6s  ownership_change=%6.2f%%  price_drop=%7.2f%%\n", c.Symbol, c.OwnershipChange, c.PriceDrop)
	}
	fmt.Printf("\nWrote %s.\n", res.ResultsPath)
	if res.PlotPath != "" {
		fmt.Printf("Wrote %s.\n", res.PlotPath)
	}
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) {
	fl := cmd.Flags()
	if fl.Changed("threshold") {
		cfg.PriceDropThreshold = f.threshold
	}
	if fl.Changed("price-days") {
		cfg.PriceLookbackDays = f.priceDays
	}
	if fl.Changed("insider-days") {
		cfg.InsiderLookbackDays = f.insiderDays
	}
	if fl.Changed("top") {
		cfg.TopN = f.topN
	}
	if f.noCache {
		cfg.CacheEnabled = false
	}
	if f.trace {
		cfg.TraceEnabled = true
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
