package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/config"
	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/utils"
	"github.com/justogm/user-gaze-track/internal/visualizer"
	"github.com/justogm/user-gaze-track/views"
)

type ResultsHandler struct {
	log      *zap.Logger
	api      ResearchAPI
	recorder *visualizer.Recorder
	route    string
	// settings is read on every request so a config reload reaches the page.
	settings func() config.ResultsConfig
}

func NewResultsHandler(log *zap.Logger, api ResearchAPI, recorder *visualizer.Recorder, route string, settings func() config.ResultsConfig) *ResultsHandler {
	return &ResultsHandler{log: log, api: api, recorder: recorder, route: route, settings: settings}
}

// points fetches the subject's samples. ok is false when the request has
// already been answered.
func (h *ResultsHandler) points(c *gin.Context, subject models.SubjectID) ([]models.StoredPoint, bool) {
	points, err := h.api.FetchUserPoints(c.Request.Context(), subject)
	if err != nil {
		h.log.Error("Failed to fetch user points", zap.Error(err), zap.Stringer("subject", subject))
		c.String(http.StatusBadGateway, "Failed to load points")
		return nil, false
	}
	return points, true
}

// stimulus resolves the prototype the heatmap is drawn over. A missing
// prototype is reported on the page; the charts still render.
func (h *ResultsHandler) stimulus(c *gin.Context, subject models.SubjectID) (*models.Display, string) {
	cfg, err := h.api.FetchConfig(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to fetch prototype configuration", zap.Error(err), zap.Stringer("subject", subject))
		return nil, missingPrototypeAlert
	}
	display, bothSet, err := cfg.Resolve()
	switch {
	case errors.Is(err, models.ErrNoPrototype):
		h.log.Error("Prototype configuration has neither url_path nor img_path", zap.Stringer("subject", subject))
		return nil, missingPrototypeAlert
	case bothSet:
		h.log.Warn("Both url_path and img_path are configured; showing the url", zap.String("url_path", display.Src))
	}
	return &display, ""
}

// ShowResults renders the animated mouse and gaze paths and the gaze heatmap
// over the stimulus.
func (h *ResultsHandler) ShowResults(c *gin.Context) {
	subject := utils.ParseSubjectID(c.Query("id"))
	points, ok := h.points(c, subject)
	if !ok {
		return
	}

	settings := h.settings()
	props := views.ResultsProps{
		Subject:          subject,
		FrameURL:         h.route + "/frame.png",
		AnimationURL:     h.route + "/animation.gif",
		DownloadPoints:   "/download/points?id=" + subject.String(),
		DownloadTaskLogs: "/download/tasklogs?id=" + subject.String(),
		Nonce:            contextString(c, NonceContextKey),
		AssetsHost:       settings.AssetsHost,
		FrameDelayMs:     settings.FrameDelayMs,
	}

	timeline, err := visualizer.BuildTimeline(points)
	if errors.Is(err, visualizer.ErrNoPoints) {
		h.log.Warn("No points recorded for subject", zap.Stringer("subject", subject))
		props.Empty = true
		h.render(c, props)
		return
	}

	props.Display, props.Alert = h.stimulus(c, subject)
	if err := h.fillCharts(&props, timeline, points); err != nil {
		h.log.Error("Failed to build result charts", zap.Error(err), zap.Stringer("subject", subject))
		c.String(http.StatusInternalServerError, "Failed to build charts")
		return
	}
	h.render(c, props)
}

func (h *ResultsHandler) fillCharts(props *views.ResultsProps, timeline visualizer.Timeline, points []models.StoredPoint) error {
	tl, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	props.TimelineJSON = string(tl)

	mouse := visualizer.PathChart(visualizer.Mouse, visualizer.Path(points, visualizer.Mouse), props.AssetsHost)
	if props.MouseChartJSON, err = visualizer.OptionsJSON(mouse.JSON()); err != nil {
		return err
	}
	gaze := visualizer.PathChart(visualizer.Gaze, visualizer.Path(points, visualizer.Gaze), props.AssetsHost)
	if props.GazeChartJSON, err = visualizer.OptionsJSON(gaze.JSON()); err != nil {
		return err
	}
	heat, err := visualizer.Heatmap(points, visualizer.DefaultCellSize, props.AssetsHost)
	if err != nil {
		return err
	}
	props.HeatmapJSON, err = visualizer.OptionsJSON(heat.JSON())
	return err
}

func (h *ResultsHandler) render(c *gin.Context, props views.ResultsProps) {
	c.Status(http.StatusOK)
	views.Layout("Results", contextString(c, CSRFContextKey)).Render(
		templ.WithChildren(c.Request.Context(), views.ResultsPage(props)),
		c.Writer,
	)
}

// exportParams reads the subject and path kind shared by the export routes.
func exportParams(c *gin.Context) (models.SubjectID, visualizer.Kind, bool) {
	subject := utils.ParseSubjectID(c.Query("id"))
	kind, err := visualizer.ParseKind(c.DefaultQuery("kind", string(visualizer.Gaze)))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return subject, "", false
	}
	return subject, kind, true
}

// Frame exports one frame of a path animation as a PNG.
func (h *ResultsHandler) Frame(c *gin.Context) {
	subject, kind, ok := exportParams(c)
	if !ok {
		return
	}
	frame, err := strconv.Atoi(c.DefaultQuery("frame", "0"))
	if err != nil || frame < 0 {
		c.String(http.StatusBadRequest, "Invalid frame")
		return
	}
	points, ok := h.points(c, subject)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := visualizer.RenderFrame(&buf, kind, visualizer.Path(points, kind), frame); err != nil {
		h.exportError(c, err, subject, kind)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Animation exports a whole path animation as an animated GIF.
func (h *ResultsHandler) Animation(c *gin.Context) {
	subject, kind, ok := exportParams(c)
	if !ok {
		return
	}
	points, ok := h.points(c, subject)
	if !ok {
		return
	}

	var buf bytes.Buffer
	key := subject.String() + "/" + string(kind)
	if err := h.recorder.Record(c.Request.Context(), &buf, key, kind, visualizer.Path(points, kind)); err != nil {
		h.exportError(c, err, subject, kind)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.gif"`, kind, subject))
	c.Data(http.StatusOK, "image/gif", buf.Bytes())
}

func (h *ResultsHandler) exportError(c *gin.Context, err error, subject models.SubjectID, kind visualizer.Kind) {
	fields := []zap.Field{zap.Stringer("subject", subject), zap.String("kind", string(kind))}
	switch {
	case errors.Is(err, visualizer.ErrNoPoints):
		h.log.Warn("No points recorded for subject", fields...)
		c.String(http.StatusNotFound, "No points recorded")
	case errors.Is(err, visualizer.ErrRecordingInProgress):
		c.String(http.StatusConflict, "A recording of this path is already in progress")
	default:
		h.log.Error("Failed to export path", append(fields, zap.Error(err))...)
		c.String(http.StatusInternalServerError, "Failed to export")
	}
}

// DownloadPoints sends the browser to the research server's points download.
func (h *ResultsHandler) DownloadPoints(c *gin.Context) {
	c.Redirect(http.StatusFound, h.api.DownloadPointsURL(utils.ParseSubjectID(c.Query("id"))))
}

// DownloadTaskLogs sends the browser to the research server's task log download.
func (h *ResultsHandler) DownloadTaskLogs(c *gin.Context) {
	c.Redirect(http.StatusFound, h.api.DownloadTaskLogsURL(utils.ParseSubjectID(c.Query("id"))))
}
