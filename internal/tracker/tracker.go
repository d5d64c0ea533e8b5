// Package tracker abstracts the third-party eye-tracking library. The
// library does all gaze estimation; this process only configures it, starts
// and stops it, and receives its predictions.
package tracker

import (
	"errors"
	"time"
)

// ErrNotConfigured is returned by Start when Configure was never called.
var ErrNotConfigured = errors.New("tracker not configured")

// Options are the library settings chosen before start.
type Options struct {
	Regression             string `json:"regression"`
	Backend                string `json:"tracker"`
	SaveDataAcrossSessions bool   `json:"saveDataAcrossSessions"`
}

// Validate rejects options the library cannot start with.
func (o Options) Validate() error {
	if o.Regression == "" {
		return errors.New("tracker regression must be set")
	}
	if o.Backend == "" {
		return errors.New("tracker backend must be set")
	}
	return nil
}

// Prediction is one gaze estimate in screen space.
type Prediction struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GazeListener receives predictions. A nil prediction means the library
// produced no valid estimate for this frame.
type GazeListener func(p *Prediction, elapsed time.Duration)

// Tracker is the capability set the collector needs from the library.
type Tracker interface {
	Configure(opts Options) error
	Start() error
	Stop()
	SetGazeListener(l GazeListener)
	ClearPersistedData()
}
