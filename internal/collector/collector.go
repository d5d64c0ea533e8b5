// Package collector pairs gaze predictions with the latest mouse position and
// uploads them in fixed-size batches.
package collector

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/tracker"
)

// Uploader receives full batches.
type Uploader interface {
	SendPoints(batch models.Batch)
}

// CalibrationState reports whether calibration has finished, and can be reset.
type CalibrationState interface {
	Calibrated() bool
	Reset()
}

// Overlay reports whether the task prompt currently covers the stimulus.
type Overlay interface {
	Visible() bool
}

// Options configure the collector.
type Options struct {
	Tracker  tracker.Options
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Collector is not safe for concurrent use; the owning session serializes
// mouse moves, predictions and lifecycle calls.
type Collector struct {
	tracker     tracker.Tracker
	uploader    Uploader
	calibration CalibrationState
	overlay     Overlay
	opts        Options
	log         *zap.Logger

	mouse   models.Position
	pending models.Batch
	batches int
	dropped int
}

// New wires a collector. Initialize must be called before predictions flow.
func New(t tracker.Tracker, u Uploader, cal CalibrationState, overlay Overlay, opts Options, log *zap.Logger) *Collector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Collector{
		tracker:     t,
		uploader:    u,
		calibration: cal,
		overlay:     overlay,
		opts:        opts,
		log:         log,
		pending:     make(models.Batch, 0, models.BatchSize),
	}
}

// Initialize configures the tracker, registers the prediction listener and starts it.
func (c *Collector) Initialize() error {
	if err := c.tracker.Configure(c.opts.Tracker); err != nil {
		return fmt.Errorf("configure tracker: %w", err)
	}
	c.tracker.SetGazeListener(c.onPrediction)
	if err := c.tracker.Start(); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}
	c.log.Debug("Tracker started",
		zap.String("regression", c.opts.Tracker.Regression),
		zap.String("backend", c.opts.Tracker.Backend),
	)
	return nil
}

// MouseMove records the latest pointer position. Positions before
// calibration completes are ignored.
func (c *Collector) MouseMove(x, y float64) {
	if !c.calibration.Calibrated() {
		return
	}
	c.mouse = models.Position{X: x, Y: y}
}

func (c *Collector) onPrediction(p *tracker.Prediction, _ time.Duration) {
	if !c.calibration.Calibrated() || c.overlay.Visible() {
		return
	}
	if p == nil || !finite(p.X) || !finite(p.Y) {
		c.dropped++
		return
	}

	c.pending = append(c.pending, models.Sample{
		Timestamp: models.LocaleTimestamp(c.opts.Now(), c.opts.Location),
		Gaze:      models.Position{X: p.X, Y: p.Y},
		Mouse:     c.mouse,
	})
	if len(c.pending) < models.BatchSize {
		return
	}

	batch := c.pending
	c.pending = make(models.Batch, 0, models.BatchSize)
	c.batches++
	c.uploader.SendPoints(batch)
}

// End stops the tracker. Pending samples are not flushed.
func (c *Collector) End() {
	c.tracker.Stop()
	if n := len(c.pending); n > 0 {
		c.log.Debug("Collector ended with unsent samples", zap.Int("pending", n))
	}
}

// Restart clears the tracker's stored training data and puts calibration
// back to its initial state.
func (c *Collector) Restart() {
	c.tracker.ClearPersistedData()
	c.calibration.Reset()
}

// Stats reports pending samples, emitted batches and dropped predictions.
type Stats struct {
	Pending int `json:"pending"`
	Batches int `json:"batches"`
	Dropped int `json:"dropped"`
}

func (c *Collector) Stats() Stats {
	return Stats{Pending: len(c.pending), Batches: c.batches, Dropped: c.dropped}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
