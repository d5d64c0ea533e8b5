// Package calibration counts clicks on the calibration targets and decides
// when the participant has finished calibrating the tracker.
package calibration

import (
	"errors"
	"fmt"

	"github.com/justogm/user-gaze-track/internal/models"
)

// ClickThreshold is the number of clicks that completes one point.
const ClickThreshold = 5

// ErrUnknownPoint is returned for clicks on an id that is not in the layout.
var ErrUnknownPoint = errors.New("unknown calibration point")

// PointState replaces the page's "disabled" attribute as the record of
// whether a point has already been counted.
type PointState int

const (
	Untouched PointState = iota
	InProgress
	Done
)

func (s PointState) String() string {
	switch s {
	case Untouched:
		return "untouched"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	}
	return "unknown"
}

func (s PointState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PointState) UnmarshalText(b []byte) error {
	for _, v := range []PointState{Untouched, InProgress, Done} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown point state %q", b)
}

// Point is one calibration target.
type Point struct {
	ID      string
	Clicks  int
	State   PointState
	Visible bool
	Center  bool
}

// Opacity is the visual progress for the point: 0.2 per click plus a 0.2 base.
// Done points are drawn fully opaque.
func (p Point) Opacity() float64 {
	if p.State == Done {
		return 1
	}
	return 0.2*float64(p.Clicks) + 0.2
}

// Grid is the calibration state of one session. It is not safe for
// concurrent use; the owning session serializes access.
type Grid struct {
	layout     *models.CalibrationLayout
	points     map[string]*Point
	order      []string
	done       int
	calibrated bool
	onComplete func()
	fired      bool
}

// NewGrid builds a grid over the layout. onComplete runs once each time the
// last point is completed.
func NewGrid(layout *models.CalibrationLayout, onComplete func()) *Grid {
	g := &Grid{layout: layout, onComplete: onComplete}
	g.Reset()
	return g
}

// Setup shows every point except the center one.
func (g *Grid) Setup() {
	for _, id := range g.order {
		p := g.points[id]
		p.Visible = !p.Center
	}
}

// Reset returns every point to Untouched, hides the center and clears the
// calibrated flag. The completion callback is re-armed.
func (g *Grid) Reset() {
	g.points = make(map[string]*Point, len(g.layout.Points))
	g.order = g.order[:0]
	for _, t := range g.layout.Points {
		g.points[t.ID] = &Point{ID: t.ID, Center: t.Center}
		g.order = append(g.order, t.ID)
	}
	g.done = 0
	g.calibrated = false
	g.fired = false
	g.Setup()
}

// Click registers one click on the point. Clicks on completed points do
// nothing: the threshold saturates and counts never go back down.
func (g *Grid) Click(id string) (Point, error) {
	p, ok := g.points[id]
	if !ok {
		return Point{}, ErrUnknownPoint
	}
	if p.State == Done || g.calibrated {
		return *p, nil
	}

	p.Clicks++
	if p.Clicks < ClickThreshold {
		p.State = InProgress
		return *p, nil
	}

	p.State = Done
	g.done++

	total := len(g.order)
	switch g.done {
	case total - 1:
		g.revealCenter()
	case total:
		g.complete()
	}
	return *p, nil
}

func (g *Grid) revealCenter() {
	for _, p := range g.points {
		if p.Center {
			p.Visible = true
		}
	}
}

func (g *Grid) complete() {
	for _, p := range g.points {
		p.Visible = false
	}
	g.calibrated = true
	if !g.fired {
		g.fired = true
		if g.onComplete != nil {
			g.onComplete()
		}
	}
}

// Calibrated reports whether every point has been completed.
func (g *Grid) Calibrated() bool { return g.calibrated }

// DoneCount is the number of completed points.
func (g *Grid) DoneCount() int { return g.done }

// Points returns copies of all points in layout order.
func (g *Grid) Points() []Point {
	out := make([]Point, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.points[id])
	}
	return out
}
