package ohlcv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// WriteCSV writes the frame with a header row. Missing cells are empty.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	rec := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for j := range f.Columns {
			rec[j] = ""
			if j < len(row) {
				rec[j] = formatCell(row[j])
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a frame written by WriteCSV. Numeric text becomes float64,
// empty cells become missing and the date column is parsed.
func ReadCSV(r io.Reader) (*Frame, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	f := &Frame{}
	if len(rows) == 0 {
		return f, nil
	}
	f.Columns = append(f.Columns, rows[0]...)
	for _, rec := range rows[1:] {
		row := make([]interface{}, len(f.Columns))
		for j := range f.Columns {
			if j < len(rec) {
				row[j] = parseCell(rec[j])
			}
		}
		f.Rows = append(f.Rows, row)
	}
	f.parseDates()
	return f, nil
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func parseCell(s string) interface{} {
	if s == "" {
		return nil
	}
	// Tickers such as NAN or INF must stay text.
	if !strings.ContainsAny(s, "0123456789") && s != "+Inf" && s != "-Inf" && s != "NaN" {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
