package sp500

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bighogz/insider-dip/internal/cache"
	"github.com/bighogz/insider-dip/internal/httpclient"
)

const DefaultCSVURL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/master/data/constituents.csv"

var ErrNoSymbols = errors.New("sp500: no constituents loaded")

type Company struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	SubIndustry string `json:"sub_industry,omitempty"`
}

// TickerSource lists constituents from a data provider.
type TickerSource interface {
	GetSP500Tickers(ctx context.Context) ([]string, error)
}

// Loader resolves the symbol universe: cache, then the provider, then the
// public constituents CSV.
type Loader struct {
	Provider TickerSource
	Store    cache.Store
	CSVURL   string
	HTTP     *http.Client
}

func NewLoader(provider TickerSource, store cache.Store) *Loader {
	return &Loader{Provider: provider, Store: store, CSVURL: DefaultCSVURL, HTTP: httpclient.Default}
}

// Symbols returns unique symbols in source order.
func (l *Loader) Symbols(ctx context.Context) ([]string, error) {
	if l.Store != nil {
		data, ok, err := l.Store.Get(cache.UniverseKey)
		if err != nil {
			log.Warn().Err(err).Msg("reading cached constituents")
		}
		if ok {
			if companies, err := Parse(bytes.NewReader(data)); err == nil && len(companies) > 0 {
				return symbols(companies), nil
			}
		}
	}

	companies, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if l.Store != nil {
		var buf bytes.Buffer
		if err := Write(&buf, companies); err == nil {
			if err := l.Store.Put(cache.UniverseKey, buf.Bytes()); err != nil {
				log.Warn().Err(err).Msg("caching constituents")
			}
		}
	}
	return symbols(companies), nil
}

func (l *Loader) fetch(ctx context.Context) ([]Company, error) {
	if l.Provider != nil {
		syms, err := l.Provider.GetSP500Tickers(ctx)
		if err == nil && len(syms) > 0 {
			out := make([]Company, 0, len(syms))
			for _, s := range syms {
				out = append(out, Company{Symbol: s, Sector: "Unknown"})
			}
			return dedupe(out), nil
		}
		log.Warn().Err(err).Msg("provider constituents unavailable, falling back to public CSV")
	}
	return l.Load(ctx)
}

// Load reads the public constituents CSV.
func (l *Loader) Load(ctx context.Context) ([]Company, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.CSVURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sp500: fetch constituents: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sp500: fetch constituents: %s", resp.Status)
	}
	return Parse(resp.Body)
}

// Parse reads a constituents CSV with at least a Symbol column.
func Parse(r io.Reader) ([]Company, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sp500: parse constituents: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNoSymbols
	}
	headers := rows[0]
	symIdx, nameIdx, sectorIdx, subIdx := -1, -1, -1, -1
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "symbol":
			symIdx = i
		case "security", "name":
			nameIdx = i
		case "gics sector", "sector":
			sectorIdx = i
		case "gics sub-industry", "sub_industry":
			subIdx = i
		}
	}
	if symIdx < 0 {
		return nil, ErrNoSymbols
	}
	out := make([]Company, 0)
	for _, row := range rows[1:] {
		if symIdx >= len(row) {
			continue
		}
		sym := strings.TrimSpace(row[symIdx])
		if sym == "" {
			continue
		}
		c := Company{Symbol: sym, Sector: "Unknown"}
		if nameIdx >= 0 && nameIdx < len(row) {
			c.Name = strings.TrimSpace(row[nameIdx])
		}
		if sectorIdx >= 0 && sectorIdx < len(row) {
			if s := strings.TrimSpace(row[sectorIdx]); s != "" {
				c.Sector = s
			}
		}
		if subIdx >= 0 && subIdx < len(row) {
			c.SubIndustry = strings.TrimSpace(row[subIdx])
		}
		out = append(out, c)
	}
	out = dedupe(out)
	if len(out) == 0 {
		return nil, ErrNoSymbols
	}
	return out, nil
}

// Write emits companies in the layout Parse reads.
func Write(w io.Writer, companies []Company) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"symbol", "name", "sector", "sub_industry"})
	for _, c := range companies {
		cw.Write([]string{c.Symbol, c.Name, c.Sector, c.SubIndustry})
	}
	cw.Flush()
	return cw.Error()
}

func dedupe(in []Company) []Company {
	seen := make(map[string]bool)
	out := make([]Company, 0, len(in))
	for _, c := range in {
		if seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		out = append(out, c)
	}
	return out
}

func symbols(companies []Company) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.Symbol
	}
	return out
}
