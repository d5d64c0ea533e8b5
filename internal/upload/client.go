// Package upload talks to the research server: it pushes sample batches and
// task logs, and fetches configuration, tasks and stored points.
//
// Pushes are fire-and-forget. They run detached, failures are only logged,
// and nothing is retried.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/httputil"
	"github.com/justogm/user-gaze-track/internal/models"
)

const (
	pathConfig         = "/api/config"
	pathTasks          = "/api/tasks"
	pathSavePoints     = "/api/save-points"
	pathSaveTaskLogs   = "/api/save-tasklogs"
	pathGetUserPoints  = "/api/get-user-points"
	pathDownloadPoints = "/api/download-points"
	pathDownloadLogs   = "/api/download-tasklogs"
)

// maxLoggedBody bounds how much of a response body ends up in the logs.
const maxLoggedBody = 512

// pointsPayload is the body of POST /api/save-points.
type pointsPayload struct {
	Points models.Batch     `json:"points"`
	ID     models.SubjectID `json:"id"`
}

// taskLogsPayload is the body of POST /api/save-tasklogs.
type taskLogsPayload struct {
	TaskLogs  []models.TaskLog `json:"taskLogs"`
	SubjectID models.SubjectID `json:"subject_id"`
}

// pointsResponse is the body of GET /api/get-user-points.
type pointsResponse struct {
	Points []models.StoredPoint `json:"points"`
}

// Client is the research server client.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewClient builds a client rooted at baseURL. A zero timeout leaves detached
// pushes unbounded.
func NewClient(baseURL string, hc httputil.HTTPClient, timeout time.Duration, log *zap.Logger) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		timeout: timeout,
		log:     log,
	}
}

// SendPoints uploads one batch for the subject without waiting for the result.
func (c *Client) SendPoints(subject models.SubjectID, batch models.Batch) {
	c.detach("save-points", pathSavePoints, pointsPayload{Points: batch, ID: subject},
		zap.Stringer("subject", subject), zap.Int("points", len(batch)))
}

// SendTaskLog uploads a single resolved task log without waiting for the result.
func (c *Client) SendTaskLog(subject models.SubjectID, log models.TaskLog) {
	c.detach("save-tasklogs", pathSaveTaskLogs, taskLogsPayload{TaskLogs: []models.TaskLog{log}, SubjectID: subject},
		zap.Stringer("subject", subject))
}

// Wait blocks until every detached push has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) detach(op, path string, payload any, fields ...zap.Field) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("Failed to encode upload", append(fields, zap.String("op", op), zap.Error(err))...)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx := context.Background()
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		text, err := c.post(ctx, path, body)
		if err != nil {
			c.log.Error("Upload failed", append(fields, zap.String("op", op), zap.Error(err))...)
			return
		}
		c.log.Info("Upload accepted", append(fields, zap.String("op", op), zap.String("response", text))...)
	}()
}

func (c *Client) post(ctx context.Context, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	text := string(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return text, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, text)
	}
	return text, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// FetchConfig returns the prototype configuration.
func (c *Client) FetchConfig(ctx context.Context) (models.PrototypeConfig, error) {
	var cfg models.PrototypeConfig
	err := c.getJSON(ctx, pathConfig, &cfg)
	return cfg, err
}

// FetchTasks returns the task prompts in server order.
func (c *Client) FetchTasks(ctx context.Context) ([]models.Task, error) {
	var list models.TaskList
	if err := c.getJSON(ctx, pathTasks, &list); err != nil {
		return nil, err
	}
	return list.Tasks, nil
}

// FetchUserPoints returns the stored samples of a subject.
func (c *Client) FetchUserPoints(ctx context.Context, subject models.SubjectID) ([]models.StoredPoint, error) {
	var resp pointsResponse
	if err := c.getJSON(ctx, subjectPath(pathGetUserPoints, subject), &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

// DownloadPointsURL is the navigation target for the subject's points file.
func (c *Client) DownloadPointsURL(subject models.SubjectID) string {
	return c.baseURL + subjectPath(pathDownloadPoints, subject)
}

// DownloadTaskLogsURL is the navigation target for the subject's task log file.
func (c *Client) DownloadTaskLogsURL(subject models.SubjectID) string {
	return c.baseURL + subjectPath(pathDownloadLogs, subject)
}

func subjectPath(path string, subject models.SubjectID) string {
	return path + "?" + url.Values{"id": {subject.String()}}.Encode()
}

// SubjectUploader binds a client to one subject.
type SubjectUploader struct {
	client  *Client
	subject models.SubjectID
}

// ForSubject returns the uploader used by one participant session.
func (c *Client) ForSubject(subject models.SubjectID) *SubjectUploader {
	return &SubjectUploader{client: c, subject: subject}
}

func (u *SubjectUploader) SendPoints(batch models.Batch) { u.client.SendPoints(u.subject, batch) }

func (u *SubjectUploader) SendTaskLog(log models.TaskLog) { u.client.SendTaskLog(u.subject, log) }
