package fmp

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bighogz/insider-dip/internal/models"
	"github.com/bighogz/insider-dip/internal/ohlcv"
)

// insiderColumns is the column layout used when transactions are written to
// a cache file. Names follow the API fields.
var insiderColumns = []string{
	"transactionDate", "symbol", "reportingName", "typeOfOwner", "transactionType",
	"securitiesTransacted", "securitiesOwned", "price", "filingDate",
}

// GetInsiderTrades returns insider transactions for ticker whose transaction
// date falls within [dateFrom, dateTo], sorted by date.
func (c *Client) GetInsiderTrades(ctx context.Context, ticker string, dateFrom, dateTo time.Time) ([]models.InsiderTransaction, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("page", "0")
	params.Set("limit", "100")
	data, err := c.get(ctx, "/insider-trading/search", params)
	if err != nil {
		return nil, err
	}
	items := records(data, "data", "insider_trading")
	if len(items) == 0 {
		return nil, ErrNoData
	}
	return ParseInsiderRecords(items, ticker, dateFrom, dateTo), nil
}

// ParseInsiderRecords converts API records. Records without a parsable
// transaction date or outside the window are dropped; zero bounds are open.
func ParseInsiderRecords(items []map[string]interface{}, ticker string, dateFrom, dateTo time.Time) []models.InsiderTransaction {
	out := make([]models.InsiderTransaction, 0, len(items))
	for _, m := range items {
		txDate, ok := parseDate(strOr(m["transactionDate"], m["periodOfReport"]))
		if !ok {
			continue
		}
		if !dateFrom.IsZero() && txDate.Before(dateFrom) {
			continue
		}
		if !dateTo.IsZero() && txDate.After(dateTo) {
			continue
		}
		sym := strings.TrimSpace(strOr(m["symbol"], m["ticker"]))
		if sym == "" {
			sym = ticker
		}
		tx := models.InsiderTransaction{
			Symbol:               sym,
			TransactionDate:      txDate,
			ReportingName:        strOr(m["reportingName"], m["reportingOwner"]),
			OwnerType:            strOr(m["typeOfOwner"]),
			TransactionType:      strOr(m["transactionType"]),
			SecuritiesTransacted: toFloat(m["securitiesTransacted"]),
			SecuritiesOwned:      toFloat(m["securitiesOwned"]),
			Price:                toFloat(m["price"]),
		}
		if fd, ok := parseDate(strOr(m["filingDate"])); ok {
			tx.FilingDate = &fd
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TransactionDate.Before(out[j].TransactionDate) })
	return out
}

// InsiderFrame lays transactions out as a frame using the API field names.
func InsiderFrame(txs []models.InsiderTransaction) *ohlcv.Frame {
	f := &ohlcv.Frame{Columns: append([]string(nil), insiderColumns...)}
	for _, tx := range txs {
		var filing interface{}
		if tx.FilingDate != nil {
			filing = tx.FilingDate.Format("2006-01-02")
		}
		f.Rows = append(f.Rows, []interface{}{
			tx.TransactionDate.Format("2006-01-02"),
			tx.Symbol,
			tx.ReportingName,
			tx.OwnerType,
			tx.TransactionType,
			tx.SecuritiesTransacted,
			tx.SecuritiesOwned,
			tx.Price,
			filing,
		})
	}
	return f
}

// TransactionsFromFrame reverses InsiderFrame, applying the same date window.
func TransactionsFromFrame(f *ohlcv.Frame, ticker string, dateFrom, dateTo time.Time) []models.InsiderTransaction {
	return ParseInsiderRecords(f.Records(), ticker, dateFrom, dateTo)
}
