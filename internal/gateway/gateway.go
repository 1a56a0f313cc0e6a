// Package gateway fetches per-symbol price and insider histories, normalizes
// them and keeps them in the on-disk cache. A symbol whose fetch fails or
// comes back empty is absent from the result; the reason is logged.
package gateway

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bighogz/insider-dip/internal/cache"
	"github.com/bighogz/insider-dip/internal/fmp"
	"github.com/bighogz/insider-dip/internal/models"
	"github.com/bighogz/insider-dip/internal/ohlcv"
)

// PriceSource returns raw daily bars in provider-specific field names.
type PriceSource interface {
	GetHistoricalPrices(ctx context.Context, ticker string, from, to time.Time) ([]map[string]interface{}, error)
}

// InsiderSource returns insider transactions dated within [from, to].
type InsiderSource interface {
	GetInsiderTrades(ctx context.Context, ticker string, from, to time.Time) ([]models.InsiderTransaction, error)
}

type Gateway struct {
	prices   PriceSource
	insiders InsiderSource
	store    cache.Store // nil disables caching
	workers  int
}

func New(prices PriceSource, insiders InsiderSource, store cache.Store, workers int) *Gateway {
	if workers < 1 {
		workers = 1
	}
	return &Gateway{prices: prices, insiders: insiders, store: store, workers: workers}
}

// FetchPriceHistory returns the normalized series sorted by date. ok is false
// when nothing usable came back.
func (g *Gateway) FetchPriceHistory(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, bool) {
	key := cache.PriceKey(symbol, from, to)
	if f, ok := g.cached(key); ok {
		s := f.Series(symbol)
		if !s.Empty() {
			return s, true
		}
	}

	recs, err := g.prices.GetHistoricalPrices(ctx, symbol, from, to)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to fetch prices")
		return models.PriceSeries{}, false
	}
	f := ohlcv.Normalize(ohlcv.FromRecords(recs))
	f.SortByDate()
	s := f.Series(symbol)
	if s.Empty() {
		log.Warn().Str("symbol", symbol).Msg("no usable price rows")
		return models.PriceSeries{}, false
	}
	g.save(key, f)
	return s, true
}

// FetchInsiderTransactions returns transactions dated within [from, to],
// sorted by date.
func (g *Gateway) FetchInsiderTransactions(ctx context.Context, symbol string, from, to time.Time) ([]models.InsiderTransaction, bool) {
	key := cache.InsiderKey(symbol, from, to)
	if f, ok := g.cached(key); ok {
		return fmp.TransactionsFromFrame(f, symbol, from, to), true
	}

	txs, err := g.insiders.GetInsiderTrades(ctx, symbol, from, to)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to fetch insider trades")
		return nil, false
	}
	g.save(key, fmp.InsiderFrame(txs))
	return txs, true
}

// FetchPriceHistories fetches every symbol, at most workers at a time.
func (g *Gateway) FetchPriceHistories(ctx context.Context, symbols []string, from, to time.Time) map[string]models.PriceSeries {
	out := make(map[string]models.PriceSeries)
	var mu sync.Mutex
	g.each(ctx, symbols, func(ctx context.Context, sym string) {
		log.Debug().Str("symbol", sym).Msg("fetching price data")
		s, ok := g.FetchPriceHistory(ctx, sym, from, to)
		if !ok {
			return
		}
		mu.Lock()
		out[sym] = s
		mu.Unlock()
	})
	return out
}

// FetchInsiderTransactionsBatch fetches every symbol, at most workers at a
// time. A symbol with an empty but successful answer maps to an empty slice.
func (g *Gateway) FetchInsiderTransactionsBatch(ctx context.Context, symbols []string, from, to time.Time) map[string][]models.InsiderTransaction {
	out := make(map[string][]models.InsiderTransaction)
	var mu sync.Mutex
	g.each(ctx, symbols, func(ctx context.Context, sym string) {
		log.Debug().Str("symbol", sym).Msg("fetching insider trades")
		txs, ok := g.FetchInsiderTransactions(ctx, sym, from, to)
		if !ok {
			return
		}
		mu.Lock()
		out[sym] = txs
		mu.Unlock()
	})
	return out
}

// each runs fn per symbol. fn never fails, so one symbol cannot stop the
// others; a cancelled ctx stops scheduling new symbols.
func (g *Gateway) each(ctx context.Context, symbols []string, fn func(context.Context, string)) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			fn(ctx, sym)
			return nil
		})
	}
	eg.Wait()
}

func (g *Gateway) cached(key string) (*ohlcv.Frame, bool) {
	if g.store == nil {
		return nil, false
	}
	data, ok, err := g.store.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	f, err := ohlcv.ReadCSV(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry unreadable")
		return nil, false
	}
	return f, true
}

func (g *Gateway) save(key string, f *ohlcv.Frame) {
	if g.store == nil {
		return
	}
	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := g.store.Put(key, buf.Bytes()); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
