package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/justogm/user-gaze-track/internal/httputil"
	"github.com/justogm/user-gaze-track/internal/models"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	*httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{status: http.StatusOK}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		status := fs.status
		fs.mu.Unlock()

		w.WriteHeader(status)
		switch r.URL.Path {
		case pathConfig:
			_, _ = w.Write([]byte(`{"url_path":"http://proto","img_path":"null"}`))
		case pathTasks:
			_, _ = w.Write([]byte(`{"tasks":[{"task":"Click the red button","type":"text"},{"task":"Did you see the logo?","type":"bool"}]}`))
		case pathGetUserPoints:
			_, _ = w.Write([]byte(`{"points":[{"x_mouse":1,"y_mouse":2,"x_gaze":3,"y_gaze":4}]}`))
		case pathSaveTaskLogs:
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			_, _ = w.Write([]byte("saved"))
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) setStatus(code int) {
	fs.mu.Lock()
	fs.status = code
	fs.mu.Unlock()
}

func (fs *fakeServer) all() []recorded {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recorded(nil), fs.requests...)
}

func newObservedClient(base string, hc httputil.HTTPClient) (*Client, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewClient(base, hc, 0, zap.New(core)), logs
}

func TestSendPointsPayload(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t)
	c, logs := newObservedClient(srv.URL, nil)

	batch := make(models.Batch, models.BatchSize)
	for i := range batch {
		batch[i] = models.Sample{Timestamp: "3/1/2024, 12:00:00 PM", Gaze: models.Position{X: float64(i), Y: 1}, Mouse: models.Position{X: 2, Y: 3}}
	}
	c.ForSubject(models.NewSubjectID(7)).SendPoints(batch)
	c.Wait()

	reqs := srv.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, pathSavePoints, reqs[0].path)

	var got struct {
		Points []map[string]any `json:"points"`
		ID     *int             `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(reqs[0].body), &got))
	require.NotNil(t, got.ID)
	assert.Equal(t, 7, *got.ID)
	assert.Len(t, got.Points, models.BatchSize)
	assert.Equal(t, "3/1/2024, 12:00:00 PM", got.Points[0]["date"])

	accepted := logs.FilterMessage("Upload accepted").All()
	require.Len(t, accepted, 1)
	assert.Equal(t, "saved", accepted[0].ContextMap()["response"])
}

func TestSendTaskLogPayload(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t)
	c, _ := newObservedClient(srv.URL, nil)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	log := models.TaskLog{StartTime: models.Timestamp(start)}
	log.Resolve(start.Add(time.Second), "yes")

	c.SendTaskLog(models.NewSubjectID(3), log)
	c.Wait()

	reqs := srv.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, pathSaveTaskLogs, reqs[0].path)
	assert.JSONEq(t,
		`{"taskLogs":[{"startTime":"3/1/2024, 12:00:00 PM","endTime":"3/1/2024, 12:00:01 PM","response":"yes"}],"subject_id":3}`,
		reqs[0].body)
}

func TestInvalidSubjectSentAsNull(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t)
	c, _ := newObservedClient(srv.URL, nil)

	c.SendPoints(models.SubjectID{}, models.Batch{})
	c.Wait()

	reqs := srv.all()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"points":[],"id":null}`, reqs[0].body)
}

func TestUploadFailuresAreOnlyLogged(t *testing.T) {
	t.Parallel()

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		hc := httputil.HTTPClientFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})
		c, logs := newObservedClient("http://research.invalid", hc)

		c.SendPoints(models.NewSubjectID(1), models.Batch{})
		c.Wait()

		failed := logs.FilterMessage("Upload failed").All()
		require.Len(t, failed, 1)
		assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	})

	t.Run("server error status", func(t *testing.T) {
		t.Parallel()
		srv := newFakeServer(t)
		srv.setStatus(http.StatusInternalServerError)
		c, logs := newObservedClient(srv.URL, nil)

		c.SendTaskLog(models.NewSubjectID(1), models.TaskLog{})
		c.Wait()

		assert.Len(t, srv.all(), 1, "no retry")
		assert.Equal(t, 1, logs.FilterMessage("Upload failed").Len())
	})
}

func TestFetches(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t)
	c, _ := newObservedClient(srv.URL+"/", nil)
	ctx := context.Background()

	cfg, err := c.FetchConfig(ctx)
	require.NoError(t, err)
	d, _, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, models.DisplayIframe, d.Kind)
	assert.Equal(t, "http://proto", d.Src)

	tasks, err := c.FetchTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.True(t, tasks[1].IsBool())

	points, err := c.FetchUserPoints(ctx, models.NewSubjectID(9))
	require.NoError(t, err)
	assert.Equal(t, []models.StoredPoint{{XMouse: 1, YMouse: 2, XGaze: 3, YGaze: 4}}, points)

	reqs := srv.all()
	assert.Equal(t, "id=9", reqs[len(reqs)-1].query)
}

func TestFetchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t)
	srv.setStatus(http.StatusServiceUnavailable)
	c, _ := newObservedClient(srv.URL, nil)

	_, err := c.FetchTasks(context.Background())
	assert.Error(t, err)
}

func TestDownloadURLs(t *testing.T) {
	t.Parallel()

	c, _ := newObservedClient("http://research.example/", nil)
	assert.Equal(t, "http://research.example/api/download-points?id=5", c.DownloadPointsURL(models.NewSubjectID(5)))
	assert.Equal(t, "http://research.example/api/download-tasklogs?id=NaN", c.DownloadTaskLogsURL(models.SubjectID{}))
}
