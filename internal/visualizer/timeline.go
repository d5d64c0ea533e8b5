// Package visualizer turns a subject's stored samples into animated path
// charts, a gaze heatmap, and image/animation exports.
package visualizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/justogm/user-gaze-track/internal/models"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("no points to visualize")

// Kind selects the mouse or the gaze half of the samples.
type Kind string

const (
	Mouse Kind = "mouse"
	Gaze  Kind = "gaze"
)

// ParseKind validates a kind coming from a query string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Mouse, Gaze:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown path kind %q", s)
}

// Path extracts one trajectory from the stored points, in sample order.
func Path(points []models.StoredPoint, kind Kind) []models.Position {
	out := make([]models.Position, len(points))
	for i, p := range points {
		if kind == Gaze {
			out[i] = p.Gaze()
		} else {
			out[i] = p.Mouse()
		}
	}
	return out
}

// Cumulative is frame i of the animation: the path up to and including sample i.
// Out of range frames are clamped.
func Cumulative(path []models.Position, frame int) []models.Position {
	if len(path) == 0 {
		return nil
	}
	if frame < 0 {
		frame = 0
	}
	if frame >= len(path) {
		frame = len(path) - 1
	}
	return path[:frame+1]
}

// Extent is the bounding box of a path, used to keep axes fixed across frames.
type Extent struct {
	MinX, MaxX, MinY, MaxY float64
}

// ExtentOf computes the bounding box. A degenerate box is widened by one pixel.
func ExtentOf(path []models.Position) Extent {
	e := Extent{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for _, p := range path {
		e.MinX = math.Min(e.MinX, p.X)
		e.MaxX = math.Max(e.MaxX, p.X)
		e.MinY = math.Min(e.MinY, p.Y)
		e.MaxY = math.Max(e.MaxY, p.Y)
	}
	if len(path) == 0 {
		return Extent{MaxX: 1, MaxY: 1}
	}
	if e.MaxX == e.MinX {
		e.MaxX++
	}
	if e.MaxY == e.MinY {
		e.MaxY++
	}
	return e
}

// Timeline is what the results page player needs: frame keys for the
// scrubber and both trajectories.
type Timeline struct {
	Frames []string        `json:"frames"`
	Mouse  [][2]float64    `json:"mouse"`
	Gaze   [][2]float64    `json:"gaze"`
	Extent map[Kind]Extent `json:"-"`
}

// BuildTimeline prepares the player data. Frame keys are the stringified indices.
func BuildTimeline(points []models.StoredPoint) (Timeline, error) {
	if len(points) == 0 {
		return Timeline{}, ErrNoPoints
	}
	mouse, gaze := Path(points, Mouse), Path(points, Gaze)
	t := Timeline{
		Frames: make([]string, len(points)),
		Mouse:  pairs(mouse),
		Gaze:   pairs(gaze),
		Extent: map[Kind]Extent{Mouse: ExtentOf(mouse), Gaze: ExtentOf(gaze)},
	}
	for i := range points {
		t.Frames[i] = strconv.Itoa(i)
	}
	return t, nil
}

func pairs(path []models.Position) [][2]float64 {
	out := make([][2]float64, len(path))
	for i, p := range path {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}
