// Package chart renders summary charts of the normalized accident tables.
package chart

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Veraticus/accidentes/internal/model"
	"github.com/Veraticus/accidentes/internal/transform"
)

const (
	chartWidth  = 11 * vg.Inch
	chartHeight = 6 * vg.Inch
)

var barColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}

// CommuneCount is one bar of the commune chart.
type CommuneCount struct {
	Name  string
	Count int
}

// CommuneCounts pairs the commune catalog with accident counts, largest first.
// Ties are broken by commune id so the output is stable.
func CommuneCounts(accidents []model.Accident, communes []model.Commune) []CommuneCount {
	byID := transform.CountByCommune(accidents)

	ordered := make([]model.Commune, len(communes))
	copy(ordered, communes)
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := byID[ordered[i].ID], byID[ordered[j].ID]
		if ci != cj {
			return ci > cj
		}
		return ordered[i].ID < ordered[j].ID
	})

	out := make([]CommuneCount, 0, len(ordered))
	for _, c := range ordered {
		out = append(out, CommuneCount{Name: c.Name, Count: byID[c.ID]})
	}
	return out
}

// RenderCommuneChart writes a bar chart of accidents per commune. The image format
// follows the file extension (.png, .svg, .pdf, ...).
func RenderCommuneChart(path string, accidents []model.Accident, communes []model.Commune) error {
	counts := CommuneCounts(accidents, communes)
	if len(counts) == 0 {
		return fmt.Errorf("no communes to chart")
	}

	values := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
		names[i] = c.Name
	}

	p := plot.New()
	p.Title.Text = "Accidentes por comuna"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.BackgroundColor = color.White
	p.Y.Label.Text = "Accidentes"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}
