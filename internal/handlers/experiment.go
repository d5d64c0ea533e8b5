package handlers

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/session"
	"github.com/justogm/user-gaze-track/internal/tracker"
	"github.com/justogm/user-gaze-track/internal/utils"
	"github.com/justogm/user-gaze-track/views"
)

// SessionCookieKey holds the participant session key inside the cookie session.
const SessionCookieKey = "participant"

const missingPrototypeAlert = "No prototype is configured for this study. Please contact the researcher."

type ExperimentHandler struct {
	log     *zap.Logger
	store   *session.Store
	api     ResearchAPI
	layout  *models.CalibrationLayout
	tracker tracker.Options
	script  string
}

func NewExperimentHandler(log *zap.Logger, store *session.Store, api ResearchAPI, layout *models.CalibrationLayout, opts tracker.Options, scriptURL string) *ExperimentHandler {
	return &ExperimentHandler{log: log, store: store, api: api, layout: layout, tracker: opts, script: scriptURL}
}

// Show starts a fresh participant session and renders the experiment page.
// Any session this browser had before is ended, the way a reload would.
func (h *ExperimentHandler) Show(c *gin.Context) {
	subject := utils.ParseSubjectID(c.Query("id"))
	cookie := sessions.Default(c)
	oldKey, _ := cookie.Get(SessionCookieKey).(string)

	s, err := h.store.Create(subject, oldKey)
	if err != nil {
		h.log.Error("Failed to start participant session", zap.Error(err), zap.Stringer("subject", subject))
		c.String(http.StatusInternalServerError, "Could not start the experiment")
		return
	}
	cookie.Set(SessionCookieKey, s.Key())
	if err := cookie.Save(); err != nil {
		h.log.Error("Failed to save session cookie", zap.Error(err))
		c.String(http.StatusInternalServerError, "Could not start the experiment")
		return
	}

	ctx := c.Request.Context()
	alert := ""
	cfg, err := h.api.FetchConfig(ctx)
	if err != nil {
		h.log.Error("Failed to fetch prototype configuration", zap.Error(err))
		s.SetDisplay(models.Display{}, err)
		alert = missingPrototypeAlert
	} else {
		display, bothSet, err := cfg.Resolve()
		switch {
		case errors.Is(err, models.ErrNoPrototype):
			h.log.Error("Prototype configuration has neither url_path nor img_path", zap.Stringer("subject", subject))
			alert = missingPrototypeAlert
		case bothSet:
			h.log.Warn("Both url_path and img_path are configured; showing the url", zap.String("url_path", display.Src))
		}
		s.SetDisplay(display, err)
	}

	taskList, err := h.api.FetchTasks(ctx)
	if err != nil {
		h.log.Error("Failed to fetch tasks", zap.Error(err))
	}
	s.LoadTasks(taskList)

	state := s.Snapshot()
	component := views.ExperimentPage(views.ExperimentProps{
		Subject:     subject,
		Layout:      h.layout,
		Calibration: state.Calibration,
		Display:     state.Display,
		Alert:       alert,
		Tracker:     h.tracker,
		TrackerURL:  h.script,
		TaskCount:   len(taskList),
		Nonce:       contextString(c, NonceContextKey),
	})
	c.Status(http.StatusOK)
	views.Layout("Gaze tracking", contextString(c, CSRFContextKey)).Render(
		templ.WithChildren(ctx, component),
		c.Writer,
	)
}
