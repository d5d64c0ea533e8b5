package models

import "time"

// BatchSize is the number of samples uploaded together.
const BatchSize = 20

// localeLayout matches the en-US locale string the research server parses
// with "%m/%d/%Y, %I:%M:%S %p".
const localeLayout = "1/2/2006, 3:04:05 PM"

// Position is a screen or viewport coordinate in CSS pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample pairs one gaze prediction with the latest mouse position.
type Sample struct {
	Timestamp string   `json:"date"`
	Gaze      Position `json:"gaze"`
	Mouse     Position `json:"mouse"`
}

// Batch is a full group of BatchSize samples.
type Batch []Sample

// LocaleTimestamp formats t in loc using the fixed locale layout.
func LocaleTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(localeLayout)
}

// StoredPoint is one sample as returned by the research server for visualization.
type StoredPoint struct {
	XMouse float64 `json:"x_mouse"`
	YMouse float64 `json:"y_mouse"`
	XGaze  float64 `json:"x_gaze"`
	YGaze  float64 `json:"y_gaze"`
}

// Mouse returns the mouse half of the point.
func (p StoredPoint) Mouse() Position { return Position{X: p.XMouse, Y: p.YMouse} }

// Gaze returns the gaze half of the point.
func (p StoredPoint) Gaze() Position { return Position{X: p.XGaze, Y: p.YGaze} }
