package tracker

import (
	"sync"
	"time"
)

// Remote is a Tracker whose engine runs in the participant's browser. The page
// reads Options and the running/clear flags from State, and pushes each
// prediction back through Push.
type Remote struct {
	mu         sync.Mutex
	opts       Options
	configured bool
	running    bool
	listener   GazeListener
	// clearGen increments on every ClearPersistedData; the page clears its
	// local store whenever it sees a generation it has not applied yet.
	clearGen int
}

// RemoteState is what the page needs to mirror the tracker.
type RemoteState struct {
	Options         Options `json:"options"`
	Running         bool    `json:"running"`
	ClearGeneration int     `json:"clearGeneration"`
}

// NewRemote returns an unconfigured, stopped tracker.
func NewRemote() *Remote {
	return &Remote{}
}

func (r *Remote) Configure(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
	r.configured = true
	return nil
}

func (r *Remote) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured {
		return ErrNotConfigured
	}
	r.running = true
	return nil
}

func (r *Remote) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Remote) SetGazeListener(l GazeListener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

func (r *Remote) ClearPersistedData() {
	r.mu.Lock()
	r.clearGen++
	r.mu.Unlock()
}

// Push delivers a prediction from the page to the listener. Predictions that
// arrive while stopped are discarded. The listener runs without the tracker
// lock held so it may call back into the tracker.
func (r *Remote) Push(p *Prediction, elapsed time.Duration) bool {
	r.mu.Lock()
	l, running := r.listener, r.running
	r.mu.Unlock()

	if !running || l == nil {
		return false
	}
	l(p, elapsed)
	return true
}

// State snapshots the tracker for the page.
func (r *Remote) State() RemoteState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RemoteState{Options: r.opts, Running: r.running, ClearGeneration: r.clearGen}
}
