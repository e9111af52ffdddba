package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/activity"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/monitoring"
)

type RemoteActivityHandler struct {
	sink *activity.Sink
}

func NewRemoteActivityHandler(sink *activity.Sink) *RemoteActivityHandler {
	return &RemoteActivityHandler{sink: sink}
}

// Ingest handles POST /api/remote/activity
//
// Entries fail independently; a 207 with per-entry errors is returned
// when any entry was rejected, a 200 when the whole batch went through.
func (h *RemoteActivityHandler) Ingest(c *gin.Context) {
	node, ok := middleware.NodeFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Invalid node credentials",
			"code":  "INVALID_WINGS_AUTH",
		})
		return
	}

	var batch activity.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		monitoring.CallbacksReceived.WithLabelValues("activity", "rejected").Inc()
		middleware.HandleAppError(c, middleware.NewBadRequestError("Invalid activity payload"))
		return
	}

	result := h.sink.Ingest(node, batch)

	if len(result.Errors) > 0 {
		monitoring.CallbacksReceived.WithLabelValues("activity", "partial").Inc()
		c.JSON(http.StatusMultiStatus, gin.H{
			"processed_count": result.ProcessedCount,
			"error_count":     len(result.Errors),
			"errors":          result.Errors,
		})
		return
	}

	monitoring.CallbacksReceived.WithLabelValues("activity", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"processed_count": result.ProcessedCount,
	})
}
