// Package session holds the per-participant state machines. Every event for
// a participant goes through one Session, which serializes them the way a
// single browser main thread would.
package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/calibration"
	"github.com/justogm/user-gaze-track/internal/collector"
	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/tasks"
	"github.com/justogm/user-gaze-track/internal/tracker"
)

// Uploader pushes the two kinds of participant data.
type Uploader interface {
	collector.Uploader
	tasks.Uploader
}

// Deps are shared by every session of the process.
type Deps struct {
	Layout         *models.CalibrationLayout
	Uploader       func(models.SubjectID) Uploader
	TrackerOptions tracker.Options
	Location       *time.Location
	ResultsRoute   string
	Now            func() time.Time
	Log            *zap.Logger
}

// Session is one participant on one experiment page.
type Session struct {
	mu sync.Mutex

	key     string
	subject models.SubjectID
	log     *zap.Logger
	now     func() time.Time

	grid      *calibration.Grid
	tracker   *tracker.Remote
	collector *collector.Collector
	tasks     *tasks.Controller

	display    *models.Display
	displayErr error
	redirect   string
	lastSeen   time.Time
	ended      bool
}

// navigator records the route the page must go to next.
type navigator struct{ s *Session }

func (n navigator) Navigate(route string) { n.s.redirect = route }

func newSession(key string, subject models.SubjectID, d Deps) (*Session, error) {
	s := &Session{
		key:     key,
		subject: subject,
		log:     d.Log.With(zap.String("session", key), zap.Stringer("subject", subject)),
		now:     d.Now,
		tracker: tracker.NewRemote(),
	}
	s.lastSeen = s.now()

	up := d.Uploader(subject)
	route := fmt.Sprintf("%s?id=%s", d.ResultsRoute, subject)
	// Task logs are stamped in the same fixed zone as samples.
	localNow := func() time.Time { return d.Now().In(d.Location) }
	s.tasks = tasks.New(up, navigator{s}, route, localNow, s.log)
	s.grid = calibration.NewGrid(d.Layout, func() {
		s.log.Info("Calibration complete")
		s.tasks.Enable()
	})
	s.collector = collector.New(s.tracker, up, s.grid, s.tasks, collector.Options{
		Tracker:  d.TrackerOptions,
		Location: d.Location,
		Now:      d.Now,
	}, s.log)

	if err := s.collector.Initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Key is the opaque id stored in the participant's cookie.
func (s *Session) Key() string { return s.key }

// Subject is the participant id from the page URL.
func (s *Session) Subject() models.SubjectID { return s.subject }

func (s *Session) touch() { s.lastSeen = s.now() }

// LastSeen is the time of the most recent event.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SetDisplay records the resolved stimulus, or why there is none.
func (s *Session) SetDisplay(d models.Display, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.display, s.displayErr = nil, err
		return
	}
	s.display, s.displayErr = &d, nil
}

// LoadTasks installs the prompts fetched for this page.
func (s *Session) LoadTasks(list []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks.Load(list)
}

// Click registers a click on a calibration point.
func (s *Session) Click(pointID string) (calibration.PointView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	p, err := s.grid.Click(pointID)
	if err != nil {
		return calibration.PointView{}, err
	}
	return calibration.NewPointView(p), nil
}

// MouseMove records a pointer position in viewport coordinates.
func (s *Session) MouseMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.collector.MouseMove(x, y)
}

// Gaze forwards one tracker prediction; nil means the tracker had no valid estimate.
func (s *Session) Gaze(p *tracker.Prediction, elapsed time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.tracker.Push(p, elapsed)
}

// OpenSidebar shows the task sidebar.
func (s *Session) OpenSidebar() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.tasks.Open()
}

// CloseSidebar hides the task sidebar.
func (s *Session) CloseSidebar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.tasks.Close()
}

// Submit answers the current task.
func (s *Session) Submit(response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.tasks.Submit(response)
}

// Skip skips the current task.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.tasks.Skip()
}

// Restart clears the tracker's training data and starts calibration over.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.collector.Restart()
	s.log.Info("Calibration restarted")
}

// End stops the tracker. Unsent samples are dropped.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.collector.End()
}

// State is everything the page needs to repaint.
type State struct {
	Subject     models.SubjectID    `json:"subject"`
	Calibration calibration.View    `json:"calibration"`
	Sidebar     tasks.View          `json:"sidebar"`
	Tracker     tracker.RemoteState `json:"tracker"`
	Collector   collector.Stats     `json:"collector"`
	Display     *models.Display     `json:"display,omitempty"`
	DisplayErr  string              `json:"displayError,omitempty"`
	Redirect    string              `json:"redirect,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Subject:     s.subject,
		Calibration: s.grid.View(),
		Sidebar:     s.tasks.View(),
		Tracker:     s.tracker.State(),
		Collector:   s.collector.Stats(),
		Display:     s.display,
		Redirect:    s.redirect,
	}
	if s.displayErr != nil {
		st.DisplayErr = s.displayErr.Error()
	}
	return st
}
