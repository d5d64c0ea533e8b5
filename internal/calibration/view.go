package calibration

// PointView is the render state of one point.
type PointView struct {
	ID       string     `json:"id"`
	Clicks   int        `json:"clicks"`
	State    PointState `json:"state"`
	Opacity  float64    `json:"opacity"`
	Visible  bool       `json:"visible"`
	Disabled bool       `json:"disabled"`
}

// View is the render state of the whole grid.
type View struct {
	Points     []PointView `json:"points"`
	Done       int         `json:"done"`
	Total      int         `json:"total"`
	Calibrated bool        `json:"calibrated"`
}

// NewPointView converts a point to its render state.
func NewPointView(p Point) PointView {
	return PointView{
		ID:       p.ID,
		Clicks:   p.Clicks,
		State:    p.State,
		Opacity:  p.Opacity(),
		Visible:  p.Visible,
		Disabled: p.State == Done,
	}
}

// View snapshots the grid for the page.
func (g *Grid) View() View {
	pts := g.Points()
	v := View{Points: make([]PointView, 0, len(pts)), Done: g.done, Total: len(pts), Calibrated: g.calibrated}
	for _, p := range pts {
		v.Points = append(v.Points, NewPointView(p))
	}
	return v
}
