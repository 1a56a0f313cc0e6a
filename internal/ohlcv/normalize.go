package ohlcv

import (
	"sort"
	"strings"
	"time"

	"github.com/bighogz/insider-dip/internal/models"
)

// synonyms is applied after column names are lowercased.
var synonyms = map[string]string{
	"datetime":  "date",
	"adjclose":  "adj_close",
	"adj close": "adj_close",
	"adj_close": "adj_close",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// Normalize returns a canonical copy of f: lowercase column names with the
// synonym table applied, a parsed date column, infinities turned into missing
// cells, rows with any missing cell dropped, forward fill, then numeric
// coercion. The order is fixed; forward fill runs after the drop.
//
// Sorting is left to the caller.
func Normalize(f *Frame) *Frame {
	if f == nil {
		return &Frame{}
	}
	out := f.Clone()
	out.renameColumns()
	out.parseDates()
	out.ReplaceInf()
	out.DropMissing()
	out.ForwardFill()
	out.CoerceNumeric()
	return out
}

// CanonicalName maps a provider column name to its canonical form.
func CanonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if s, ok := synonyms[n]; ok {
		return s
	}
	return n
}

// renameColumns canonicalizes names. When two columns collapse onto the same
// name the first one wins and the rest are removed.
func (f *Frame) renameColumns() {
	seen := make(map[string]bool)
	keep := make([]int, 0, len(f.Columns))
	cols := make([]string, 0, len(f.Columns))
	for i, c := range f.Columns {
		n := CanonicalName(c)
		if seen[n] {
			continue
		}
		seen[n] = true
		keep = append(keep, i)
		cols = append(cols, n)
	}
	if len(keep) != len(f.Columns) {
		for r, row := range f.Rows {
			nr := make([]interface{}, len(keep))
			for j, i := range keep {
				if i < len(row) {
					nr[j] = row[i]
				}
			}
			f.Rows[r] = nr
		}
	}
	f.Columns = cols
}

func (f *Frame) parseDates() {
	di := f.Col("date")
	if di < 0 {
		return
	}
	for _, row := range f.Rows {
		row[di] = parseDate(row[di])
	}
}

// parseDate returns a time.Time or nil. Unparsable values become missing.
func parseDate(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return nil
}

// Series converts a normalized frame into a sorted price series. A frame
// with no date or close column gives an empty series. Duplicate dates keep
// their first row so dates are strictly increasing.
func (f *Frame) Series(symbol string) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol}
	if !f.HasDate() || f.Col("close") < 0 {
		return s
	}
	di := f.Col("date")
	oi, hi, li, ci := f.Col("open"), f.Col("high"), f.Col("low"), f.Col("close")
	ai, vi := f.Col("adj_close"), f.Col("volume")

	num := func(row []interface{}, i int) float64 {
		if i < 0 {
			return 0
		}
		x, _ := asNumber(row[i])
		return x
	}

	points := make([]models.PricePoint, 0, len(f.Rows))
	for _, row := range f.Rows {
		d, ok := row[di].(time.Time)
		if !ok {
			continue
		}
		if _, ok := asNumber(row[ci]); !ok {
			continue
		}
		p := models.PricePoint{
			Date:   d,
			Open:   num(row, oi),
			High:   num(row, hi),
			Low:    num(row, li),
			Close:  num(row, ci),
			Volume: num(row, vi),
		}
		if ai >= 0 {
			if a, ok := asNumber(row[ai]); ok {
				p.AdjClose = &a
			}
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(a, b int) bool { return points[a].Date.Before(points[b].Date) })

	dedup := points[:0]
	for _, p := range points {
		if n := len(dedup); n > 0 && !p.Date.After(dedup[n-1].Date) {
			continue
		}
		dedup = append(dedup, p)
	}
	s.Points = dedup
	return s
}
