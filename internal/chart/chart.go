// Package chart draws the top candidates as a labelled scatter plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bighogz/insider-dip/internal/models"
)

const (
	FileName     = "top_stocks_ceo_buys.png"
	DefaultTitle = "Top 10 Stocks by CEO Ownership Change and Price Drop"
)

var ErrNothingToPlot = errors.New("chart: no candidates to plot")

var pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 160}

// Renderer writes PNG charts into Dir.
type Renderer struct {
	Dir    string
	Title  string
	Width  vg.Length
	Height vg.Length
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{Dir: dir, Title: DefaultTitle, Width: 12 * vg.Inch, Height: 8 * vg.Inch}
}

// Plot draws price drop against ownership change, one point per candidate
// sized by its ownership change and labelled with its symbol. It returns
// the path of the saved image.
func (r *Renderer) Plot(candidates []models.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNothingToPlot
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("chart: create plots dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = r.Title
	p.X.Label.Text = "Price Drop (%)"
	p.Y.Label.Text = "Ownership Change (%)"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(candidates))
	names := make([]string, len(candidates))
	for i, c := range candidates {
		xys[i].X = c.PriceDrop
		xys[i].Y = c.OwnershipChange
		names[i] = c.Symbol
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return "", fmt.Errorf("chart: %w", err)
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  pointColor,
			Radius: Radius(candidates[i].OwnershipChange),
			Shape:  draw.CircleGlyph{},
		}
	}

	labels, err := symbolLabels(xys, names)
	if err != nil {
		return "", fmt.Errorf("chart: %w", err)
	}

	p.Add(sc, labels)

	path := filepath.Join(r.Dir, FileName)
	if err := p.Save(r.Width, r.Height, path); err != nil {
		return "", fmt.Errorf("chart: save %s: %w", path, err)
	}
	return path, nil
}

// symbolLabels places each label to the left of its point, with the text's
// right edge just short of the marker.
func symbolLabels(xys plotter.XYs, names []string) (*plotter.Labels, error) {
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XRight
	}
	labels.Offset = vg.Point{X: -vg.Points(4), Y: vg.Points(2)}
	return labels, nil
}

// Radius maps an ownership change to a marker radius. Marker area grows
// linearly with the change, 50 square points per percent, clamped to a
// readable range.
func Radius(ownershipChange float64) vg.Length {
	area := math.Max(ownershipChange, 0) * 50
	r := math.Sqrt(area / math.Pi)
	return vg.Points(math.Min(math.Max(r, 2), 40))
}
