package handlers

import (
	"net/http"

	"plant_monitor/internal/evaluator"
	"plant_monitor/internal/models"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string  "status, monitor"
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Snapshots != nil {
		resp["monitor"] = h.services.Snapshots.Current().Status
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Current snapshot
// @Description  Latest reading, findings, recommendation, error lines and counters.
// @Tags         monitor
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/snapshot [get]
// @Security     BearerAuth
func (h *Handler) getSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshots.Current())
}

type rangeResponse struct {
	Metric models.Metric `json:"metric"`
	Min    float64       `json:"min"`
	Max    float64       `json:"max"`
	Unit   string        `json:"unit"`
}

// @Summary      Optimal ranges
// @Tags         monitor
// @Produce      json
// @Success      200  {array}   rangeResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/ranges [get]
// @Security     BearerAuth
func (h *Handler) getRanges(c *gin.Context) {
	table := evaluator.Ranges()
	out := make([]rangeResponse, 0, len(table))
	for _, m := range models.Metrics {
		b := table[m]
		out = append(out, rangeResponse{Metric: m, Min: b.Min, Max: b.Max, Unit: b.Unit})
	}
	c.JSON(http.StatusOK, out)
}
