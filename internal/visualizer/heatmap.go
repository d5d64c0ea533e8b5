package visualizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/justogm/user-gaze-track/internal/models"
)

// DefaultCellSize is the heatmap bin edge in pixels.
const DefaultCellSize = 40.0

// NormalizeNonNegative shifts every point by the same offset so that the
// smallest coordinate on each axis is at least zero. Predictions can fall
// off-screen to the left or top, which yields negative coordinates.
func NormalizeNonNegative(path []models.Position) []models.Position {
	if len(path) == 0 {
		return nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	for _, p := range path {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
	}
	dx, dy := math.Max(0, -minX), math.Max(0, -minY)

	out := make([]models.Position, len(path))
	for i, p := range path {
		out[i] = models.Position{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// HeatCell is one bin of the heatmap.
type HeatCell struct {
	X, Y  float64 // bin center
	Count int
}

// Bin counts points per square cell, returning cells in row-major order.
func Bin(path []models.Position, cell float64) []HeatCell {
	if cell <= 0 {
		cell = DefaultCellSize
	}
	type key struct{ col, row int }
	counts := make(map[key]int)
	for _, p := range path {
		counts[key{int(math.Floor(p.X / cell)), int(math.Floor(p.Y / cell))}]++
	}

	out := make([]HeatCell, 0, len(counts))
	for k, n := range counts {
		out = append(out, HeatCell{
			X:     (float64(k.col) + 0.5) * cell,
			Y:     (float64(k.row) + 0.5) * cell,
			Count: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Heatmap renders the gaze density as a coloured scatter over binned cells.
func Heatmap(points []models.StoredPoint, cell float64, assetsHost string) (*charts.Scatter, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if cell <= 0 {
		cell = DefaultCellSize
	}
	cells := Bin(NormalizeNonNegative(Path(points, Gaze)), cell)

	maxCount := 1
	data := make([]opts.ScatterData, 0, len(cells))
	for _, c := range cells {
		if c.Count > maxCount {
			maxCount = c.Count
		}
		data = append(data, opts.ScatterData{Value: []interface{}{c.X, c.Y, c.Count}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Gaze heatmap", Subtitle: fmt.Sprintf("samples=%d cells=%d cell=%gpx", len(points), len(cells), cell)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Name: "y (px)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#4575b4", "#74add1", "#abd9e9", "#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026"}},
		}),
	)
	scatter.AddSeries("gaze", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	return scatter, nil
}
