package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type countingStore struct {
	sweeps  atomic.Int32
	evict   int
	maxIdle time.Duration
}

func (c *countingStore) EvictIdle(maxIdle time.Duration) int {
	c.sweeps.Add(1)
	c.maxIdle = maxIdle
	return c.evict
}

func (c *countingStore) Len() int { return 0 }

func TestJanitorSweep(t *testing.T) {
	t.Parallel()

	store := &countingStore{evict: 2}
	j := NewJanitor(zaptest.NewLogger(t), store, time.Minute, time.Hour)
	assert.Equal(t, 2, j.Sweep())
	assert.Equal(t, time.Hour, store.maxIdle)
}

func TestJanitorStartStops(t *testing.T) {
	t.Parallel()

	store := &countingStore{}
	// Nop logger: the ticker goroutine may still log after the test returns.
	j := NewJanitor(zap.NewNop(), store, 5*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)
	assert.Eventually(t, func() bool { return store.sweeps.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}
