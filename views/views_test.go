package views

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"regexp"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justogm/user-gaze-track/internal/calibration"
	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/tracker"
)

func render(t *testing.T, c templ.Component, ctx context.Context) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

// dataAttr decodes the JSON held in the first data-<name> attribute.
func dataAttr(t *testing.T, out, name string, v any) {
	t.Helper()
	m := regexp.MustCompile(`data-` + name + `="([^"]*)"`).FindStringSubmatch(out)
	require.Len(t, m, 2, "data-%s not rendered", name)
	require.NoError(t, json.Unmarshal([]byte(html.UnescapeString(m[1])), v))
}

func TestLayoutWrapsChildren(t *testing.T) {
	t.Parallel()

	body := templ.Raw("<p>child</p>")
	out := render(t, Layout(`Title <x>`, `tok"en`), templ.WithChildren(context.Background(), body))
	assert.Contains(t, out, `<meta name="csrf-token" content="tok&#34;en">`)
	assert.Contains(t, out, `<title>Title &lt;x&gt;</title>`)
	assert.Contains(t, out, `<body><p>child</p></body>`)
}

func TestExperimentPageMarksCenterAndHidesIt(t *testing.T) {
	t.Parallel()

	layout := models.DefaultCalibrationLayout()
	grid := calibration.NewGrid(layout, nil)
	out := render(t, ExperimentPage(ExperimentProps{
		Subject:     models.NewSubjectID(3),
		Layout:      layout,
		Calibration: grid.View(),
		Display:     &models.Display{Kind: models.DisplayIframe, Src: `https://proto.test/?a=1&b="2"`},
		Tracker:     tracker.Options{Regression: "ridge", Backend: "TFFacemesh"},
		TrackerURL:  "https://tracker.test/webgazer.js",
		Alert:       `say "hi" <b>`,
		Nonce:       "abc",
	}), context.Background())

	assert.Contains(t, out, `id="Pt5" data-center style="top:50%;left:50%;opacity:0.2;display:none"`)
	assert.Contains(t, out, `id="Pt1" style="top:5%;left:5%;opacity:0.2"`)
	assert.Contains(t, out, `src="https://proto.test/?a=1&amp;b=&#34;2&#34;"`)
	assert.Contains(t, out, `<script src="https://tracker.test/webgazer.js" nonce="abc"></script>`)
	assert.Contains(t, out, `id="task-toggle" hidden`)

	var cfg pageConfig
	dataAttr(t, out, "config", &cfg)
	assert.Equal(t, 3, cfg.Subject.Value)
	assert.Equal(t, `say "hi" <b>`, cfg.Alert)
	assert.Equal(t, "ridge", cfg.Tracker.Regression)
	assert.NotContains(t, out, "<b>", "page data is escaped in the attribute")
}

func TestExperimentPageWithoutLayoutOrPrototype(t *testing.T) {
	t.Parallel()

	out := render(t, ExperimentPage(ExperimentProps{}), context.Background())
	assert.NotContains(t, out, `id="prototype"`)
	assert.NotContains(t, out, `class="calibration-point"`)
	assert.Contains(t, out, `<div id="calibration-grid"></div>`)
}

func TestResultsPageEmpty(t *testing.T) {
	t.Parallel()

	out := render(t, ResultsPage(ResultsProps{Subject: models.SubjectID{}, Empty: true}), context.Background())
	assert.Contains(t, out, "Results for subject NaN")
	assert.Contains(t, out, "No points were recorded")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, `id="heatmap-chart"`)
}

func TestResultsPageDrawsHeatmapOverStimulus(t *testing.T) {
	t.Parallel()

	out := render(t, ResultsPage(ResultsProps{
		Subject:          models.NewSubjectID(7),
		Display:          &models.Display{Kind: models.DisplayImage, Src: "http://proto.test/shot.png"},
		TimelineJSON:     `{"frames":["0"]}`,
		MouseChartJSON:   `{"series":[]}`,
		GazeChartJSON:    `{"series":[]}`,
		HeatmapJSON:      `{"visualMap":{}}`,
		FrameURL:         "/results/frame.png",
		AnimationURL:     "/results/animation.gif",
		DownloadPoints:   "/download/points?id=7",
		DownloadTaskLogs: "/download/tasklogs?id=7",
		AssetsHost:       "https://assets.test/",
		FrameDelayMs:     25,
		Nonce:            "n1",
	}), context.Background())

	assert.Contains(t, out, `<div id="heatmap-stage"><img id="prototype" alt="Prototype" src="http://proto.test/shot.png"><div class="chart" id="heatmap-chart"`)
	assert.Contains(t, out, `<section class="player" data-kind="mouse">`)
	assert.Contains(t, out, `href="/results/animation.gif?id=7&amp;kind=gaze"`)
	assert.Contains(t, out, `<script src="https://assets.test/echarts.min.js" nonce="n1"></script>`)
	assert.NotContains(t, out, `class="alert"`)

	var meta struct {
		FrameURL   string `json:"frameURL"`
		Subject    string `json:"subject"`
		FrameDelay int    `json:"frameDelay"`
	}
	dataAttr(t, out, "meta", &meta)
	assert.Equal(t, "/results/frame.png", meta.FrameURL)
	assert.Equal(t, "7", meta.Subject)
	assert.Equal(t, 25, meta.FrameDelay)

	var mouse map[string]any
	dataAttr(t, out, "options", &mouse)
	assert.Contains(t, mouse, "series", "first data-options belongs to the mouse player")
}

func TestResultsPageAlert(t *testing.T) {
	t.Parallel()

	out := render(t, ResultsPage(ResultsProps{Subject: models.NewSubjectID(1), Alert: "No prototype"}), context.Background())
	assert.Contains(t, out, `<p class="alert" role="alert">No prototype</p>`)
	assert.NotContains(t, out, `id="prototype"`)
}
