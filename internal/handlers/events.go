package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/calibration"
	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/tasks"
	"github.com/justogm/user-gaze-track/internal/tracker"
	"github.com/justogm/user-gaze-track/internal/utils"
)

// EventsHandler receives the page's calibration, pointer, tracker and
// sidebar events for the participant session loaded by the router.
type EventsHandler struct {
	log *zap.Logger
}

func NewEventsHandler(log *zap.Logger) *EventsHandler {
	return &EventsHandler{log: log}
}

// gazeRequest mirrors the tracker callback. The browser serializes NaN as
// null, so missing or null coordinates mean there is no usable estimate.
type gazeRequest struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Elapsed float64  `json:"elapsed"` // milliseconds since the tracker started
}

func (r *gazeRequest) prediction() *tracker.Prediction {
	if r == nil || r.X == nil || r.Y == nil {
		return nil
	}
	return &tracker.Prediction{X: *r.X, Y: *r.Y}
}

type submitRequest struct {
	Response string `json:"response"`
}

func (h *EventsHandler) State(c *gin.Context) {
	s, _ := CurrentSession(c)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *EventsHandler) Click(c *gin.Context) {
	s, _ := CurrentSession(c)
	id := c.Param("point")
	if !utils.IsValidPointID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid point id"})
		return
	}

	point, err := s.Click(id)
	if err != nil {
		if errors.Is(err, calibration.ErrUnknownPoint) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown calibration point"})
			return
		}
		h.log.Error("Failed to register calibration click", zap.Error(err), zap.String("point", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register click"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"point": point, "state": s.Snapshot()})
}

func (h *EventsHandler) Mouse(c *gin.Context) {
	s, _ := CurrentSession(c)
	var pos models.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	s.MouseMove(pos.X, pos.Y)
	c.Status(http.StatusNoContent)
}

// Gaze accepts one prediction. A JSON null body, or null coordinates, is the
// tracker reporting no valid estimate, which the collector drops.
func (h *EventsHandler) Gaze(c *gin.Context) {
	s, _ := CurrentSession(c)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	var req *gazeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	var elapsed time.Duration
	if req != nil {
		elapsed = time.Duration(req.Elapsed * float64(time.Millisecond))
	}
	accepted := s.Gaze(req.prediction(), elapsed)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

func (h *EventsHandler) OpenSidebar(c *gin.Context) {
	s, _ := CurrentSession(c)
	if err := s.OpenSidebar(); err != nil {
		h.sidebarError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *EventsHandler) CloseSidebar(c *gin.Context) {
	s, _ := CurrentSession(c)
	s.CloseSidebar()
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *EventsHandler) Submit(c *gin.Context) {
	s, _ := CurrentSession(c)
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	if err := s.Submit(req.Response); err != nil {
		h.sidebarError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *EventsHandler) Skip(c *gin.Context) {
	s, _ := CurrentSession(c)
	if err := s.Skip(); err != nil {
		h.sidebarError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *EventsHandler) Restart(c *gin.Context) {
	s, _ := CurrentSession(c)
	s.Restart()
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *EventsHandler) End(c *gin.Context) {
	s, _ := CurrentSession(c)
	s.End()
	c.Status(http.StatusNoContent)
}

func (h *EventsHandler) sidebarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tasks.ErrNotAvailable), errors.Is(err, tasks.ErrNotPrompting):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("Sidebar action failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sidebar action failed"})
	}
}
