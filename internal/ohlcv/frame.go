// Package ohlcv turns provider price records into canonical daily bars.
//
// A Frame is a loose, column-ordered table of cells. A nil cell (or a NaN
// float) is the missing marker. Cells otherwise hold float64, string, bool
// or time.Time values.
package ohlcv

import (
	"math"
	"sort"
	"time"
)

type Frame struct {
	Columns []string
	Rows    [][]interface{}
}

// FromRecords builds a frame from decoded JSON records. Columns are the union
// of record keys; a record lacking a key gets a missing cell there.
func FromRecords(records []map[string]interface{}) *Frame {
	f := &Frame{}
	index := make(map[string]int)
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := index[k]; !ok {
				index[k] = len(f.Columns)
				f.Columns = append(f.Columns, k)
			}
		}
	}
	for _, rec := range records {
		row := make([]interface{}, len(f.Columns))
		for k, v := range rec {
			row[index[k]] = v
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Col returns the index of a column or -1.
func (f *Frame) Col(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (f *Frame) HasDate() bool {
	return f != nil && f.Col("date") >= 0
}

func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{Columns: append([]string(nil), f.Columns...)}
	out.Rows = make([][]interface{}, len(f.Rows))
	for i, r := range f.Rows {
		out.Rows[i] = append([]interface{}(nil), r...)
	}
	return out
}

func isMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	if x, ok := v.(float64); ok && math.IsNaN(x) {
		return true
	}
	return false
}

// ReplaceInf turns +Inf and -Inf into missing cells.
func (f *Frame) ReplaceInf() {
	for _, row := range f.Rows {
		for j, v := range row {
			if x, ok := v.(float64); ok && math.IsInf(x, 0) {
				row[j] = nil
			}
		}
	}
}

// DropMissing removes every row that has a missing cell in any column.
func (f *Frame) DropMissing() {
	kept := f.Rows[:0]
	for _, row := range f.Rows {
		complete := len(row) == len(f.Columns)
		for _, v := range row {
			if isMissing(v) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		}
	}
	f.Rows = kept
}

// ForwardFill copies the last seen value of a column into later missing cells.
// Leading missing cells stay missing.
func (f *Frame) ForwardFill() {
	last := make([]interface{}, len(f.Columns))
	for _, row := range f.Rows {
		for j := range f.Columns {
			if j >= len(row) {
				break
			}
			if isMissing(row[j]) {
				if last[j] != nil {
					row[j] = last[j]
				}
				continue
			}
			last[j] = row[j]
		}
	}
}

// CoerceNumeric converts every column whose present values are all numeric
// to float64. Columns holding text or dates are left alone.
func (f *Frame) CoerceNumeric() {
	for j := range f.Columns {
		numeric := true
		for _, row := range f.Rows {
			if isMissing(row[j]) {
				continue
			}
			if _, ok := asNumber(row[j]); !ok {
				numeric = false
				break
			}
		}
		if !numeric {
			continue
		}
		for _, row := range f.Rows {
			if isMissing(row[j]) {
				continue
			}
			row[j], _ = asNumber(row[j])
		}
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// SortByDate orders rows ascending by the date column. Rows without a date
// sort last. It is a no-op for frames with no date column.
func (f *Frame) SortByDate() {
	di := f.Col("date")
	if di < 0 {
		return
	}
	sort.SliceStable(f.Rows, func(a, b int) bool {
		ta, okA := f.Rows[a][di].(time.Time)
		tb, okB := f.Rows[b][di].(time.Time)
		if !okA || !okB {
			return okA && !okB
		}
		return ta.Before(tb)
	})
}

// Records returns one map per row keyed by column name. Missing cells are
// omitted.
func (f *Frame) Records() []map[string]interface{} {
	if f == nil {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(f.Rows))
	for _, row := range f.Rows {
		m := make(map[string]interface{}, len(f.Columns))
		for j, c := range f.Columns {
			if j < len(row) && !isMissing(row[j]) {
				m[c] = row[j]
			}
		}
		out = append(out, m)
	}
	return out
}
