package fmp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bighogz/insider-dip/internal/ohlcv"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(0, 0))
}

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestGetHistoricalPricesArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/historical-price-eod/full", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "ABC", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-04-30", r.URL.Query().Get("to"))
		w.Write([]byte(`[{"symbol":"ABC","date":"2024-01-03","close":10.5},{"symbol":"ABC","date":"2024-01-02","close":10}]`))
	})

	recs, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-04-30"))

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 10.5, recs[0]["close"])
}

func TestGetHistoricalPricesWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ABC","historical":[{"date":"2024-01-02","close":10}]}`))
	})

	recs, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestGetHistoricalPricesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-01-31"))

	assert.ErrorIs(t, err, ErrNoData)
}

func TestGetErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrRateLimited)
		}},
		{"server error", http.StatusInternalServerError, `oops`, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 500, se.Code)
		}},
		{"error message", http.StatusOK, `{"Error Message":"Invalid API KEY."}`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "Invalid API KEY.")
		}},
		{"bad json", http.StatusOK, `{`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "decode")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-01-31"))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetWithoutKey(t *testing.T) {
	c := New("")
	_, err := c.GetSP500Tickers(context.Background())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-01-31"))
		require.Error(t, err)
	}
	_, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-01-31"))

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 8; i++ {
		_, err := c.GetHistoricalPrices(context.Background(), "ABC", date("2024-01-01"), date("2024-01-31"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, int32(8), atomic.LoadInt32(&calls))
}

func TestGetSP500Tickers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sp500-constituent", r.URL.Path)
		w.Write([]byte(`[{"symbol":"AAPL"},{"symbol":" MSFT "},{"symbol":""}]`))
	})

	syms, err := c.GetSP500Tickers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, syms)
}

func TestGetInsiderTrades(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/insider-trading/search", r.URL.Path)
		assert.Equal(t, "ABC", r.URL.Query().Get("symbol"))
		w.Write([]byte(`[
			{"symbol":"ABC","transactionDate":"2024-03-10","filingDate":"2024-03-12 18:01:02","reportingName":"Doe Jane","typeOfOwner":"director","transactionType":"P-Purchase","securitiesTransacted":1000,"securitiesOwned":10000,"price":12.5},
			{"symbol":"ABC","transactionDate":"2024-03-05","typeOfOwner":"CEO","transactionType":"S-Sale","securitiesTransacted":50,"securitiesOwned":500},
			{"symbol":"ABC","transactionDate":"2024-01-01","typeOfOwner":"CEO","transactionType":"P-Purchase","securitiesTransacted":1,"securitiesOwned":2},
			{"symbol":"ABC","transactionDate":"","typeOfOwner":"CEO","transactionType":"P-Purchase"}
		]`))
	})

	txs, err := c.GetInsiderTrades(context.Background(), "ABC", date("2024-03-01"), date("2024-03-20"))

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, date("2024-03-05"), txs[0].TransactionDate)
	assert.Equal(t, "S-Sale", txs[0].TransactionType)
	got := txs[1]
	assert.Equal(t, "ABC", got.Symbol)
	assert.Equal(t, "Doe Jane", got.ReportingName)
	assert.Equal(t, "director", got.OwnerType)
	assert.Equal(t, "P-Purchase", got.TransactionType)
	assert.Equal(t, 1000.0, got.SecuritiesTransacted)
	assert.Equal(t, 10000.0, got.SecuritiesOwned)
	assert.Equal(t, 12.5, got.Price)
	require.NotNil(t, got.FilingDate)
	assert.Equal(t, date("2024-03-12"), *got.FilingDate)
}

func TestInsiderFrameRoundTrip(t *testing.T) {
	filed := date("2024-03-12")
	txs := ParseInsiderRecords([]map[string]interface{}{
		{"symbol": "NAN", "transactionDate": "2024-03-10", "typeOfOwner": "10 percent owner, director", "transactionType": "P-Purchase", "securitiesTransacted": 5.0, "securitiesOwned": 50.0},
	}, "NAN", time.Time{}, time.Time{})
	txs[0].FilingDate = &filed

	var buf bytes.Buffer
	require.NoError(t, InsiderFrame(txs).WriteCSV(&buf))
	f, err := ohlcv.ReadCSV(&buf)
	require.NoError(t, err)

	back := TransactionsFromFrame(f, "NAN", date("2024-03-01"), date("2024-03-31"))

	assert.Equal(t, txs, back)
}
