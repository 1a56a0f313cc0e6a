// Package report persists the candidate table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bighogz/insider-dip/internal/models"
)

const FileName = "candidates.csv"

var header = []string{"symbol", "ownership_change", "price_drop"}

// Writer stores candidate tables under Dir.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Save writes candidates to Dir/candidates.csv, creating Dir if needed, and
// returns the path written.
func (w *Writer) Save(candidates []models.Candidate) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create results dir: %w", err)
	}
	path := filepath.Join(w.Dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	if err := WriteCSV(f, candidates); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return path, nil
}

// WriteCSV emits one row per candidate in the given order.
func WriteCSV(w io.Writer, candidates []models.Candidate) error {
	cw := csv.NewWriter(w)
	cw.Write(header)
	for _, c := range candidates {
		cw.Write([]string{
			c.Symbol,
			strconv.FormatFloat(c.OwnershipChange, 'f', -1, 64),
			strconv.FormatFloat(c.PriceDrop, 'f', -1, 64),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: write csv: %w", err)
	}
	return nil
}
