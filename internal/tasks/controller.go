// Package tasks drives the task sidebar: one prompt at a time, a timing and
// response log per prompt, and navigation to the results once all are done.
package tasks

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/models"
)

var (
	// ErrNotAvailable is returned when the sidebar is used before calibration completes.
	ErrNotAvailable = errors.New("task sidebar not available before calibration")
	// ErrNotPrompting is returned when a task is resolved while no task is on screen.
	ErrNotPrompting = errors.New("no task is being prompted")
)

// State is the sidebar state.
type State int

const (
	Hidden State = iota
	Prompting
	Done
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Prompting:
		return "prompting"
	case Done:
		return "done"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, v := range []State{Hidden, Prompting, Done} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown sidebar state %q", b)
}

// Uploader receives each resolved log.
type Uploader interface {
	SendTaskLog(log models.TaskLog)
}

// Navigator leaves the experiment page.
type Navigator interface {
	Navigate(route string)
}

// Controller is not safe for concurrent use; the owning session serializes calls.
type Controller struct {
	uploader     Uploader
	navigator    Navigator
	resultsRoute string
	now          func() time.Time
	log          *zap.Logger

	tasks        []models.Task
	index        int
	state        State
	available    bool
	sessionStart *time.Time
	current      *models.TaskLog
	navigated    bool
}

// New builds a controller. now defaults to time.Now.
func New(u Uploader, n Navigator, resultsRoute string, now func() time.Time, log *zap.Logger) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{uploader: u, navigator: n, resultsRoute: resultsRoute, now: now, log: log}
}

// Load installs the task list. Order is preserved.
func (c *Controller) Load(tasks []models.Task) {
	c.tasks = append([]models.Task(nil), tasks...)
}

// Enable makes the sidebar toggle available. Called when calibration completes.
func (c *Controller) Enable() { c.available = true }

// Available reports whether the toggle is shown.
func (c *Controller) Available() bool { return c.available }

// Visible reports whether the sidebar currently covers the stimulus.
func (c *Controller) Visible() bool { return c.state == Prompting }

// State returns the current sidebar state.
func (c *Controller) State() State { return c.state }

// Index is the cursor into the task list. It only ever moves forward.
func (c *Controller) Index() int { return c.index }

// Open shows the sidebar. The first open fixes the session start time, which
// becomes the start of the first task. A task keeps the start time of its
// first display across close/reopen.
func (c *Controller) Open() error {
	if !c.available {
		return ErrNotAvailable
	}
	if c.state == Done {
		return nil
	}

	now := c.now()
	if c.sessionStart == nil {
		c.sessionStart = &now
	}
	if c.index >= len(c.tasks) {
		c.finish()
		return nil
	}

	c.state = Prompting
	if c.current == nil {
		start := now
		if c.index == 0 {
			start = *c.sessionStart
		}
		c.current = &models.TaskLog{StartTime: models.Timestamp(start)}
	}
	return nil
}

// Close hides the sidebar. The in-progress log is kept as is.
func (c *Controller) Close() {
	if c.state == Prompting {
		c.state = Hidden
	}
}

// Submit resolves the current task with the participant's answer.
func (c *Controller) Submit(response string) error {
	return c.resolve(response)
}

// Skip resolves the current task as skipped.
func (c *Controller) Skip() error {
	return c.resolve(models.SkippedResponse)
}

func (c *Controller) resolve(response string) error {
	if c.state != Prompting || c.current == nil {
		return ErrNotPrompting
	}

	now := c.now()
	log := *c.current
	log.Resolve(now, response)
	c.uploader.SendTaskLog(log)
	c.log.Debug("Task resolved",
		zap.Int("index", c.index),
		zap.Bool("skipped", response == models.SkippedResponse),
	)

	c.index++
	c.current = nil
	if c.index >= len(c.tasks) {
		c.finish()
		return nil
	}
	// The next task is on screen from this moment.
	c.current = &models.TaskLog{StartTime: models.Timestamp(now)}
	return nil
}

func (c *Controller) finish() {
	c.state = Done
	c.current = nil
	if c.navigated {
		return
	}
	c.navigated = true
	c.navigator.Navigate(c.resultsRoute)
}

// CurrentLog returns a copy of the in-progress log, if any.
func (c *Controller) CurrentLog() (models.TaskLog, bool) {
	if c.current == nil {
		return models.TaskLog{}, false
	}
	return *c.current, true
}

// View is the render state of the sidebar.
type View struct {
	State     State        `json:"state"`
	Available bool         `json:"available"`
	Visible   bool         `json:"visible"`
	Blurred   bool         `json:"blurred"`
	Task      *models.Task `json:"task,omitempty"`
	ShowInput bool         `json:"showInput"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
}

// View snapshots the sidebar for the page.
func (c *Controller) View() View {
	v := View{
		State:     c.state,
		Available: c.available,
		Visible:   c.Visible(),
		Blurred:   c.Visible(),
		Index:     c.index,
		Total:     len(c.tasks),
	}
	if c.state == Prompting && c.index < len(c.tasks) {
		t := c.tasks[c.index]
		v.Task = &t
		v.ShowInput = !t.IsBool()
	}
	return v
}
