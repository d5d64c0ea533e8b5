package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Evictor drops sessions that have been idle for too long.
type Evictor interface {
	EvictIdle(maxIdle time.Duration) int
	Len() int
}

// Janitor periodically ends abandoned participant sessions so their trackers
// stop and their memory is released. Unsent samples are not flushed.
type Janitor struct {
	log      *zap.Logger
	store    Evictor
	interval time.Duration
	maxIdle  time.Duration
}

func NewJanitor(log *zap.Logger, store Evictor, interval, maxIdle time.Duration) *Janitor {
	return &Janitor{
		log:      log,
		store:    store,
		interval: interval,
		maxIdle:  maxIdle,
	}
}

// Start runs the janitor in a goroutine until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.log.Info("Starting session janitor...", zap.Duration("interval", j.interval), zap.Duration("max_idle", j.maxIdle))
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Sweep()
			}
		}
	}()
}

// Sweep evicts idle sessions once.
func (j *Janitor) Sweep() int {
	n := j.store.EvictIdle(j.maxIdle)
	if n > 0 {
		j.log.Info("Evicted idle sessions", zap.Int("evicted", n), zap.Int("remaining", j.store.Len()))
	} else {
		j.log.Debug("Session sweep found nothing idle", zap.Int("live", j.store.Len()))
	}
	return n
}
