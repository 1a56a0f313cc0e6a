// Package finder runs one screen: fetch prices for the universe, keep the
// symbols that fell past the threshold, look for executive open-market buys
// among them, then aggregate, persist and plot what is left.
package finder

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bighogz/insider-dip/internal/aggregator"
	"github.com/bighogz/insider-dip/internal/filters"
	"github.com/bighogz/insider-dip/internal/models"
	"github.com/bighogz/insider-dip/internal/telemetry"
)

type Universe interface {
	Symbols(ctx context.Context) ([]string, error)
}

type DataGateway interface {
	FetchPriceHistories(ctx context.Context, symbols []string, from, to time.Time) map[string]models.PriceSeries
	FetchInsiderTransactionsBatch(ctx context.Context, symbols []string, from, to time.Time) map[string][]models.InsiderTransaction
}

type ResultWriter interface {
	Save(candidates []models.Candidate) (string, error)
}

type Plotter interface {
	Plot(candidates []models.Candidate) (string, error)
}

// Options are the per-run settings, usually copied from config.Config and
// then overridden by flags.
type Options struct {
	Threshold   float64
	PriceDays   int
	InsiderDays int
	TopN        int
	// Symbols, when set, replaces the universe.
	Symbols []string
}

type Result struct {
	Screened       int
	PriceSurvivors int
	Candidates     []models.Candidate
	Top            []models.Candidate
	ResultsPath    string
	PlotPath       string
}

type Finder struct {
	opts     Options
	universe Universe
	gateway  DataGateway
	writer   ResultWriter
	plotter  Plotter // nil skips plotting

	Now func() time.Time
}

func New(opts Options, universe Universe, gw DataGateway, writer ResultWriter, plotter Plotter) *Finder {
	return &Finder{
		opts:     opts,
		universe: universe,
		gateway:  gw,
		writer:   writer,
		plotter:  plotter,
		Now:      time.Now,
	}
}

// Find runs the screen. When nothing survives both filters it returns
// aggregator.ErrNoCandidates and writes nothing.
func (f *Finder) Find(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "find")
	defer span.End()

	res := &Result{}
	symbols, err := f.symbols(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	res.Screened = len(symbols)
	span.SetAttributes(attribute.Int("symbols", len(symbols)))

	today := day(f.Now())
	priceFrom := today.AddDate(0, 0, -f.opts.PriceDays)
	insiderFrom := today.AddDate(0, 0, -f.opts.InsiderDays)

	log.Info().Int("symbols", len(symbols)).Str("from", priceFrom.Format("2006-01-02")).
		Str("to", today.Format("2006-01-02")).Msg("fetching price data")
	prices := stage(ctx, "fetch-prices", func(ctx context.Context) map[string]models.PriceSeries {
		return f.gateway.FetchPriceHistories(ctx, symbols, priceFrom, today)
	})

	dropped := stage(ctx, "price-drop-filter", func(context.Context) map[string]models.PriceSeries {
		return filters.PriceDrop(prices, f.opts.Threshold)
	})
	res.PriceSurvivors = len(dropped)
	log.Info().Int("fetched", len(prices)).Int("passed", len(dropped)).
		Float64("threshold", f.opts.Threshold).Msg("price drop filter applied")

	survivors := sortedKeys(dropped)
	trades := stage(ctx, "fetch-insider-trades", func(ctx context.Context) map[string][]models.InsiderTransaction {
		return f.gateway.FetchInsiderTransactionsBatch(ctx, survivors, insiderFrom, today)
	})

	buys := stage(ctx, "insider-buy-filter", func(context.Context) map[string][]models.InsiderTransaction {
		return filters.InsiderBuys(trades)
	})
	log.Info().Int("symbols", len(buys)).Msg("executive purchases found")
	if len(buys) == 0 {
		return nil, aggregator.ErrNoCandidates
	}

	_, aggSpan := telemetry.Tracer().Start(ctx, "aggregate")
	candidates, err := aggregator.Aggregate(dropped, buys)
	aggSpan.End()
	if err != nil {
		return nil, err
	}
	res.Candidates = candidates
	res.Top = aggregator.Rank(candidates, f.opts.TopN)

	res.ResultsPath, err = f.writer.Save(candidates)
	if err != nil {
		return nil, fail(span, fmt.Errorf("save results: %w", err))
	}
	log.Info().Str("path", res.ResultsPath).Int("candidates", len(candidates)).Msg("results saved")

	if f.plotter != nil {
		path, err := f.plotter.Plot(res.Top)
		if err != nil {
			log.Error().Err(err).Msg("plot failed")
		} else {
			res.PlotPath = path
			log.Info().Str("path", path).Msg("plot saved")
		}
	}
	return res, nil
}

func (f *Finder) symbols(ctx context.Context) ([]string, error) {
	if len(f.opts.Symbols) > 0 {
		return f.opts.Symbols, nil
	}
	ctx, span := telemetry.Tracer().Start(ctx, "universe")
	defer span.End()
	syms, err := f.universe.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	return syms, nil
}

func stage[T any](ctx context.Context, name string, fn func(context.Context) map[string]T) map[string]T {
	ctx, span := telemetry.Tracer().Start(ctx, name)
	defer span.End()
	out := fn(ctx)
	span.SetAttributes(attribute.Int("results", len(out)))
	return out
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
