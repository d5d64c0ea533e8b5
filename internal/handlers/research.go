package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/session"
)

// Context keys shared with the router middleware.
const (
	SessionContextKey = "gaze_session"
	CSRFContextKey    = "csrf_token"
	NonceContextKey   = "csp_nonce"
)

// ResearchAPI is the part of the research server the pages need.
type ResearchAPI interface {
	FetchConfig(ctx context.Context) (models.PrototypeConfig, error)
	FetchTasks(ctx context.Context) ([]models.Task, error)
	FetchUserPoints(ctx context.Context, subject models.SubjectID) ([]models.StoredPoint, error)
	DownloadPointsURL(subject models.SubjectID) string
	DownloadTaskLogsURL(subject models.SubjectID) string
}

// CurrentSession returns the participant session loaded by the router, if any.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(SessionContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}

func contextString(c *gin.Context, key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}
