package visualizer

import (
	"encoding/json"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/justogm/user-gaze-track/internal/models"
)

var seriesColor = map[Kind]string{
	Mouse: "#2f7ed8",
	Gaze:  "#e4572e",
}

// PathChart builds the base chart for one trajectory showing frame 0. The
// page player replaces the series data as frames advance; the axes stay
// fixed to the full extent so the view never rescales mid-animation.
func PathChart(kind Kind, path []models.Position, assetsHost string) *charts.Line {
	ext := ExtentOf(path)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s path", kind),
			Subtitle: fmt.Sprintf("%d samples", len(path)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: ext.MinX, Max: ext.MaxX, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: ext.MinY, Max: ext.MaxY, Name: "y (px)", NameLocation: "middle", NameGap: 40}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	items := make([]opts.LineData, 0, 1)
	for _, p := range Cumulative(path, 0) {
		items = append(items, opts.LineData{Value: []interface{}{p.X, p.Y}})
	}
	line.AddSeries(string(kind), items).
		SetSeriesOptions(
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2, Color: seriesColor[kind]}),
		)
	return line
}

// OptionsJSON serializes a chart option object (chart.JSON()) for echarts.setOption.
func OptionsJSON(options interface{}) (string, error) {
	b, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("marshal chart options: %w", err)
	}
	return string(b), nil
}
