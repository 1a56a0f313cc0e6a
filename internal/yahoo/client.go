package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

var ErrNoData = errors.New("yahoo: no data")

// HistoryFunc returns daily bars for [start, end). end is exclusive.
type HistoryFunc func(symbol string, start, end time.Time) ([]yfmodels.Bar, error)

type Client struct {
	History HistoryFunc
}

func New() *Client {
	return &Client{History: tickerHistory}
}

func tickerHistory(symbol string, start, end time.Time) ([]yfmodels.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	return t.HistoryRange(start, end, "1d")
}

// ToYahooSymbol converts index symbols to Yahoo format: BRK.B -> BRK-B
func ToYahooSymbol(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ".", "-")
}

// GetHistoricalPrices returns daily bars for [from, to] keyed the way Yahoo
// names its columns (Date, Open, High, Low, Close, AdjClose, Volume).
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) ([]map[string]interface{}, error) {
	if symbol == "" {
		return nil, ErrNoData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := c.History(ToYahooSymbol(symbol), from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("yahoo: history %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	out := make([]map[string]interface{}, 0, len(bars))
	for _, b := range bars {
		rec := map[string]interface{}{
			"Date":   b.Date.Format("2006-01-02"),
			"Open":   b.Open,
			"High":   b.High,
			"Low":    b.Low,
			"Close":  b.Close,
			"Volume": float64(b.Volume),
		}
		if b.AdjClose != 0 {
			rec["AdjClose"] = b.AdjClose
		}
		out = append(out, rec)
	}
	return out, nil
}
