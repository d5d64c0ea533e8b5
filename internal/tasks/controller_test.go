package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/models"
)

type fakeUploader struct{ logs []models.TaskLog }

func (f *fakeUploader) SendTaskLog(l models.TaskLog) { f.logs = append(f.logs, l) }

type fakeNavigator struct{ routes []string }

func (f *fakeNavigator) Navigate(route string) { f.routes = append(f.routes, route) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var exampleTasks = []models.Task{
	{Task: "Click the red button", Type: "text"},
	{Task: "Did you see the logo?", Type: "bool"},
}

func newController(t *testing.T, tasks []models.Task) (*Controller, *fakeUploader, *fakeNavigator, *clock) {
	t.Helper()
	up, nav := &fakeUploader{}, &fakeNavigator{}
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(up, nav, "/results?id=1", clk.now, zap.NewNop())
	c.Load(tasks)
	return c, up, nav, clk
}

func TestOpenBeforeCalibration(t *testing.T) {
	t.Parallel()

	c, _, _, _ := newController(t, exampleTasks)
	assert.ErrorIs(t, c.Open(), ErrNotAvailable)
	assert.Equal(t, Hidden, c.State())
	assert.False(t, c.View().Available)
}

func TestResolveWhileHidden(t *testing.T) {
	t.Parallel()

	c, up, _, _ := newController(t, exampleTasks)
	c.Enable()
	assert.ErrorIs(t, c.Submit("x"), ErrNotPrompting)
	assert.ErrorIs(t, c.Skip(), ErrNotPrompting)
	assert.Empty(t, up.logs)
}

func TestSubmitThenSkipScenario(t *testing.T) {
	t.Parallel()

	c, up, nav, clk := newController(t, exampleTasks)
	c.Enable()

	require.NoError(t, c.Open())
	v := c.View()
	assert.True(t, v.Visible)
	assert.True(t, v.Blurred)
	assert.True(t, v.ShowInput)
	assert.Equal(t, "Click the red button", v.Task.Task)

	clk.advance(3 * time.Second)
	require.NoError(t, c.Submit("yes"))
	assert.Equal(t, 1, c.Index())

	v = c.View()
	assert.Equal(t, "Did you see the logo?", v.Task.Task)
	assert.False(t, v.ShowInput, "bool tasks hide the text input")

	clk.advance(2 * time.Second)
	require.NoError(t, c.Skip())

	require.Len(t, up.logs, 2)
	assert.Equal(t, "yes", *up.logs[0].Response)
	assert.Equal(t, models.SkippedResponse, *up.logs[1].Response)
	for _, l := range up.logs {
		assert.True(t, l.Resolved())
	}

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, up.logs[0].StartTime.Time().Equal(t0))
	assert.True(t, up.logs[0].EndTime.Time().Equal(t0.Add(3*time.Second)))
	assert.True(t, up.logs[1].StartTime.Time().Equal(t0.Add(3*time.Second)), "next task starts when the previous resolves")
	assert.True(t, up.logs[1].EndTime.Time().Equal(t0.Add(5*time.Second)))

	assert.Equal(t, Done, c.State())
	assert.Equal(t, []string{"/results?id=1"}, nav.routes)
	assert.False(t, c.Visible())
}

func TestCloseAndReopenKeepsStartTime(t *testing.T) {
	t.Parallel()

	c, up, _, clk := newController(t, exampleTasks)
	c.Enable()
	require.NoError(t, c.Open())
	first, ok := c.CurrentLog()
	require.True(t, ok)

	clk.advance(10 * time.Second)
	c.Close()
	assert.False(t, c.Visible())
	assert.ErrorIs(t, c.Submit("early"), ErrNotPrompting)

	clk.advance(10 * time.Second)
	require.NoError(t, c.Open())
	again, ok := c.CurrentLog()
	require.True(t, ok)
	assert.Equal(t, first.StartTime, again.StartTime)
	assert.Equal(t, 0, c.Index())

	require.NoError(t, c.Submit("done"))
	require.Len(t, up.logs, 1)
	assert.True(t, up.logs[0].StartTime.Time().Equal(first.StartTime.Time()))
}

func TestIndexMonotonicAndSingleNavigation(t *testing.T) {
	t.Parallel()

	tasks := []models.Task{{Task: "a"}, {Task: "b"}, {Task: "c"}}
	c, up, nav, _ := newController(t, tasks)
	c.Enable()
	require.NoError(t, c.Open())

	prev := c.Index()
	for i := range tasks {
		if i%2 == 0 {
			require.NoError(t, c.Submit("r"))
		} else {
			require.NoError(t, c.Skip())
		}
		assert.Equal(t, prev+1, c.Index())
		prev = c.Index()
	}

	// Nothing further resolves or navigates.
	assert.ErrorIs(t, c.Submit("extra"), ErrNotPrompting)
	require.NoError(t, c.Open())
	assert.Len(t, up.logs, len(tasks))
	assert.Len(t, nav.routes, 1)
	assert.Equal(t, len(tasks), c.Index())
}

func TestEmptyTaskListFinishesOnOpen(t *testing.T) {
	t.Parallel()

	c, up, nav, _ := newController(t, nil)
	c.Enable()
	require.NoError(t, c.Open())
	assert.Equal(t, Done, c.State())
	assert.Empty(t, up.logs)
	assert.Len(t, nav.routes, 1)
}
