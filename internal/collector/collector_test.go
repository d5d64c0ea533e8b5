package collector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/tracker"
)

type fakeUploader struct{ batches []models.Batch }

func (f *fakeUploader) SendPoints(b models.Batch) { f.batches = append(f.batches, b) }

type fakeCalibration struct {
	calibrated bool
	resets     int
}

func (f *fakeCalibration) Calibrated() bool { return f.calibrated }
func (f *fakeCalibration) Reset()           { f.calibrated = false; f.resets++ }

type fakeOverlay struct{ visible bool }

func (f *fakeOverlay) Visible() bool { return f.visible }

type harness struct {
	c       *Collector
	tr      *tracker.Remote
	up      *fakeUploader
	cal     *fakeCalibration
	overlay *fakeOverlay
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tr:      tracker.NewRemote(),
		up:      &fakeUploader{},
		cal:     &fakeCalibration{},
		overlay: &fakeOverlay{},
	}
	fixed := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	h.c = New(h.tr, h.up, h.cal, h.overlay, Options{
		Tracker: tracker.Options{Regression: "ridge", Backend: "TFFacemesh"},
		Now:     func() time.Time { return fixed },
	}, zap.NewNop())
	require.NoError(t, h.c.Initialize())
	return h
}

func (h *harness) predict(n int) {
	for i := 0; i < n; i++ {
		h.tr.Push(&tracker.Prediction{X: float64(i), Y: float64(i)}, 0)
	}
}

func TestInitializeStartsTracker(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	state := h.tr.State()
	assert.True(t, state.Running)
	assert.Equal(t, "ridge", state.Options.Regression)
}

func TestBatchesAreExactlyTwenty(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cal.calibrated = true

	h.predict(models.BatchSize*2 + 7)

	require.Len(t, h.up.batches, 2)
	for _, b := range h.up.batches {
		assert.Len(t, b, models.BatchSize)
	}
	assert.Equal(t, 7, h.c.Stats().Pending)
	assert.Equal(t, float64(models.BatchSize), h.up.batches[1][0].Gaze.X, "second batch starts where the first ended")
}

func TestNoSamplesBeforeCalibration(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.predict(models.BatchSize * 3)
	assert.Empty(t, h.up.batches)
	assert.Zero(t, h.c.Stats().Pending)
}

func TestNoSamplesWhileOverlayVisible(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cal.calibrated = true
	h.overlay.visible = true
	h.predict(models.BatchSize * 2)
	assert.Zero(t, h.c.Stats().Pending)

	h.overlay.visible = false
	h.predict(3)
	assert.Equal(t, 3, h.c.Stats().Pending)
}

func TestInvalidPredictionsDropped(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cal.calibrated = true

	h.tr.Push(nil, 0)
	h.tr.Push(&tracker.Prediction{X: math.NaN(), Y: 1}, 0)
	h.tr.Push(&tracker.Prediction{X: 1, Y: math.Inf(1)}, 0)

	stats := h.c.Stats()
	assert.Zero(t, stats.Pending)
	assert.Equal(t, 3, stats.Dropped)
}

func TestSamplePairsLatestMouse(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.c.MouseMove(999, 999) // ignored, not calibrated yet
	h.cal.calibrated = true
	h.c.MouseMove(10, 20)
	h.predict(models.BatchSize)

	require.Len(t, h.up.batches, 1)
	s := h.up.batches[0][0]
	assert.Equal(t, models.Position{X: 10, Y: 20}, s.Mouse)
	assert.Equal(t, "3/1/2024, 3:00:00 PM", s.Timestamp)
}

func TestMouseBeforeCalibrationIsZero(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.c.MouseMove(5, 5)
	h.cal.calibrated = true
	h.predict(models.BatchSize)

	require.Len(t, h.up.batches, 1)
	assert.Equal(t, models.Position{}, h.up.batches[0][0].Mouse)
}

func TestEndDoesNotFlush(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cal.calibrated = true
	h.predict(models.BatchSize - 1)

	h.c.End()
	assert.False(t, h.tr.State().Running)
	assert.Empty(t, h.up.batches)

	h.predict(5)
	assert.Equal(t, models.BatchSize-1, h.c.Stats().Pending, "stopped tracker delivers nothing")
}

func TestRestart(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cal.calibrated = true

	h.c.Restart()
	assert.Equal(t, 1, h.cal.resets)
	assert.False(t, h.cal.calibrated)
	assert.Equal(t, 1, h.tr.State().ClearGeneration)
}
