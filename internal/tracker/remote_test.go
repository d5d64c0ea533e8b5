package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOptions = Options{Regression: "ridge", Backend: "TFFacemesh", SaveDataAcrossSessions: true}

func TestRemoteLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRemote()
	assert.ErrorIs(t, r.Start(), ErrNotConfigured)
	assert.Error(t, r.Configure(Options{}))

	require.NoError(t, r.Configure(testOptions))
	require.NoError(t, r.Start())

	state := r.State()
	assert.True(t, state.Running)
	assert.Equal(t, testOptions, state.Options)

	r.Stop()
	assert.False(t, r.State().Running)
}

func TestRemotePush(t *testing.T) {
	t.Parallel()

	r := NewRemote()
	require.NoError(t, r.Configure(testOptions))

	var got []*Prediction
	r.SetGazeListener(func(p *Prediction, _ time.Duration) { got = append(got, p) })

	assert.False(t, r.Push(&Prediction{X: 1, Y: 2}, 0), "stopped tracker drops predictions")

	require.NoError(t, r.Start())
	assert.True(t, r.Push(&Prediction{X: 1, Y: 2}, 10*time.Millisecond))
	assert.True(t, r.Push(nil, 20*time.Millisecond))

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].X)
	assert.Nil(t, got[1])
}

func TestRemoteClearPersistedData(t *testing.T) {
	t.Parallel()

	r := NewRemote()
	r.ClearPersistedData()
	r.ClearPersistedData()
	assert.Equal(t, 2, r.State().ClearGeneration)
}
