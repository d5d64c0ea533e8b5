package calibration

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justogm/user-gaze-track/internal/models"
)

func newTestGrid(t *testing.T) (*Grid, *int) {
	t.Helper()
	calls := 0
	g := NewGrid(models.DefaultCalibrationLayout(), func() { calls++ })
	return g, &calls
}

func clickN(t *testing.T, g *Grid, id string, n int) Point {
	t.Helper()
	var p Point
	var err error
	for i := 0; i < n; i++ {
		p, err = g.Click(id)
		require.NoError(t, err)
	}
	return p
}

func TestSetupHidesCenter(t *testing.T) {
	t.Parallel()

	g, _ := newTestGrid(t)
	for _, p := range g.Points() {
		assert.Equal(t, !p.Center, p.Visible, p.ID)
		assert.Equal(t, Untouched, p.State)
	}
}

func TestOpacityProgress(t *testing.T) {
	t.Parallel()

	g, _ := newTestGrid(t)
	for n := 1; n <= 4; n++ {
		p, err := g.Click("Pt1")
		require.NoError(t, err)
		assert.Equal(t, InProgress, p.State)
		assert.InDelta(t, 0.2*float64(n)+0.2, p.Opacity(), 1e-9)
	}

	p, err := g.Click("Pt1")
	require.NoError(t, err)
	assert.Equal(t, Done, p.State)
	assert.Equal(t, 1, g.DoneCount())
	assert.True(t, NewPointView(p).Disabled)
}

func TestDonePointSaturates(t *testing.T) {
	t.Parallel()

	g, _ := newTestGrid(t)
	clickN(t, g, "Pt1", ClickThreshold)
	p := clickN(t, g, "Pt1", 3)

	assert.Equal(t, ClickThreshold, p.Clicks)
	assert.Equal(t, Done, p.State)
	assert.Equal(t, 1, g.DoneCount())
}

func TestCenterRevealedAfterPeriphery(t *testing.T) {
	t.Parallel()

	g, calls := newTestGrid(t)
	periphery := []string{"Pt1", "Pt2", "Pt3", "Pt4", "Pt6", "Pt7", "Pt8"}
	for _, id := range periphery {
		clickN(t, g, id, ClickThreshold)
	}
	assert.False(t, centerVisible(g), "center hidden after 7 points")

	clickN(t, g, "Pt9", ClickThreshold)
	assert.True(t, centerVisible(g), "center revealed after 8 points")
	assert.False(t, g.Calibrated())

	clickN(t, g, "Pt5", ClickThreshold)
	assert.True(t, g.Calibrated())
	assert.Equal(t, 1, *calls)
	for _, p := range g.Points() {
		assert.False(t, p.Visible, "all points hidden once calibrated")
	}

	// Further clicks neither count nor re-fire the callback.
	clickN(t, g, "Pt5", 2)
	assert.Equal(t, 1, *calls)
}

func TestUnknownPoint(t *testing.T) {
	t.Parallel()

	g, _ := newTestGrid(t)
	_, err := g.Click("nope")
	assert.ErrorIs(t, err, ErrUnknownPoint)
}

func TestReset(t *testing.T) {
	t.Parallel()

	g, calls := newTestGrid(t)
	for _, p := range g.Points() {
		clickN(t, g, p.ID, ClickThreshold)
	}
	require.True(t, g.Calibrated())

	g.Reset()
	assert.False(t, g.Calibrated())
	assert.Equal(t, 0, g.DoneCount())
	assert.False(t, centerVisible(g))
	for _, p := range g.Points() {
		assert.Zero(t, p.Clicks)
	}

	for _, p := range g.Points() {
		clickN(t, g, p.ID, ClickThreshold)
	}
	assert.Equal(t, 2, *calls, "callback re-armed by reset")
}

// Calibration completes exactly when every point has reached the threshold,
// whatever order the clicks arrive in.
func TestCalibratedIffAllPointsDone(t *testing.T) {
	t.Parallel()

	ids := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		ids = append(ids, fmt.Sprintf("Pt%d", i))
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		g, _ := newTestGrid(t)
		clicks := make(map[string]int)
		for step := 0; step < 60; step++ {
			id := ids[rng.Intn(len(ids))]
			_, err := g.Click(id)
			require.NoError(t, err)
			clicks[id]++

			complete := 0
			for _, c := range clicks {
				if c >= ClickThreshold {
					complete++
				}
			}
			require.Equal(t, complete == len(ids), g.Calibrated(), "trial %d step %d", trial, step)
		}
	}
}

func TestView(t *testing.T) {
	t.Parallel()

	g, _ := newTestGrid(t)
	clickN(t, g, "Pt2", 2)
	v := g.View()
	assert.Equal(t, 9, v.Total)
	assert.Equal(t, 0, v.Done)
	require.Len(t, v.Points, 9)
	assert.Equal(t, "Pt2", v.Points[1].ID)
	assert.InDelta(t, 0.6, v.Points[1].Opacity, 1e-9)
	assert.Equal(t, InProgress, v.Points[1].State)
}

func centerVisible(g *Grid) bool {
	for _, p := range g.Points() {
		if p.Center {
			return p.Visible
		}
	}
	return false
}
