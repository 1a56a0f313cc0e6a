package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bighogz/insider-dip/internal/httpclient"
)

const DefaultBaseURL = "https://financialmodelingprep.com/stable"

var (
	ErrRateLimited = errors.New("fmp: rate limited")
	ErrNoData      = errors.New("fmp: no data")
	ErrNoAPIKey    = errors.New("fmp: api key not set")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fmp: unexpected status %s", e.Status)
}

type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithRateLimit caps outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		HTTP:    httpclient.Default,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, o := range opts {
		o(c)
	}
	c.breaker = newBreaker("fmp")
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Caller cancellations and per-symbol 4xx answers say nothing about
		// the health of the API.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (interface{}, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	params.Set("apikey", c.APIKey)
	u := c.BaseURL + path + "?" + params.Encode()

	return c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, ErrRateLimited
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
		}
		var data interface{}
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return nil, fmt.Errorf("fmp: decode %s: %w", path, err)
		}
		if m, ok := data.(map[string]interface{}); ok {
			if msg, ok := m["Error Message"].(string); ok && msg != "" {
				return nil, fmt.Errorf("fmp: %s", msg)
			}
		}
		return data, nil
	})
}

// records extracts the list of objects from a response that is either a bare
// array or an object wrapping one under key.
func records(data interface{}, keys ...string) []map[string]interface{} {
	var items []interface{}
	switch v := data.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		for _, k := range keys {
			if d, ok := v[k].([]interface{}); ok && len(d) > 0 {
				items = d
				break
			}
		}
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// GetSP500Tickers returns current index constituents from FMP.
func (c *Client) GetSP500Tickers(ctx context.Context) ([]string, error) {
	data, err := c.get(ctx, "/sp500-constituent", url.Values{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, m := range records(data) {
		if sym := strings.TrimSpace(str(m["symbol"])); sym != "" {
			out = append(out, sym)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// GetHistoricalPrices returns raw daily bars for [from, to]. Field names are
// whatever the API sends; callers normalize them.
func (c *Client) GetHistoricalPrices(ctx context.Context, ticker string, from, to time.Time) ([]map[string]interface{}, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	data, err := c.get(ctx, "/historical-price-eod/full", params)
	if err != nil {
		return nil, err
	}
	hist := records(data, "historical")
	if len(hist) == 0 {
		return nil, ErrNoData
	}
	return hist, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	s = s[:min(10, len(s))]
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if m, ok := v.(map[string]interface{}); ok {
		if n, ok := m["name"].(string); ok {
			return n
		}
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func strOr(vals ...interface{}) string {
	for _, v := range vals {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

func toFloat(vals ...interface{}) float64 {
	for _, v := range vals {
		if v == nil {
			continue
		}
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		case string:
			f, _ := strconv.ParseFloat(x, 64)
			return f
		}
	}
	return 0
}
