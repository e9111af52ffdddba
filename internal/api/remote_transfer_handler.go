package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/monitoring"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/transfer"
)

// RemoteTransferHandler receives transfer callbacks from node agents.
// These routes authenticate by server uuid rather than node credential:
// during a transfer both the source and the destination agent must be
// able to report, and only the destination holds a signed token.
type RemoteTransferHandler struct {
	servers     *repository.ServerRepository
	coordinator *transfer.Coordinator
}

func NewRemoteTransferHandler(servers *repository.ServerRepository, coordinator *transfer.Coordinator) *RemoteTransferHandler {
	return &RemoteTransferHandler{servers: servers, coordinator: coordinator}
}

func (h *RemoteTransferHandler) lookupServer(c *gin.Context) (*models.Server, bool) {
	server, err := h.servers.FindByUUID(c.Param("uuid"))
	if err != nil {
		if errors.Is(err, repository.ErrServerNotFound) {
			middleware.HandleAppError(c, middleware.NewNotFoundError("Server"))
		} else {
			middleware.HandleAppError(c, middleware.NewInternalError(err))
		}
		return nil, false
	}
	return server, true
}

// Status handles POST /api/remote/servers/:uuid/transfer
//
// The combined callback: the reporting agent says whether the transfer
// worked and, on success, which node now owns the server.
func (h *RemoteTransferHandler) Status(c *gin.Context) {
	server, ok := h.lookupServer(c)
	if !ok {
		return
	}

	var req struct {
		Successful *bool  `json:"successful" binding:"required"`
		NodeID     *uint  `json:"node_id"`
		Error      string `json:"error"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		monitoring.CallbacksReceived.WithLabelValues("transfer", "rejected").Inc()
		middleware.HandleAppError(c, middleware.NewBadRequestError("A successful flag is required"))
		return
	}

	var err error
	if *req.Successful {
		err = h.coordinator.Complete(server, req.NodeID)
	} else {
		errMsg := req.Error
		if errMsg == "" {
			errMsg = transfer.DefaultStatusError
		}
		err = h.coordinator.Fail(server, errMsg)
	}
	if err != nil {
		monitoring.CallbacksReceived.WithLabelValues("transfer", "error").Inc()
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	monitoring.CallbacksReceived.WithLabelValues("transfer", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Archive handles POST /api/remote/servers/:uuid/transfer/archive
func (h *RemoteTransferHandler) Archive(c *gin.Context) {
	server, ok := h.lookupServer(c)
	if !ok {
		return
	}

	h.coordinator.ArchiveReceived(server)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Failure handles POST /api/remote/servers/:uuid/transfer/failure
func (h *RemoteTransferHandler) Failure(c *gin.Context) {
	server, ok := h.lookupServer(c)
	if !ok {
		return
	}

	var req struct {
		Error string `json:"error"`
	}
	// The body is optional; a bare failure report is still a failure.
	_ = c.ShouldBindJSON(&req)

	errMsg := req.Error
	if errMsg == "" {
		errMsg = transfer.DefaultFailureError
	}

	if err := h.coordinator.Fail(server, errMsg); err != nil {
		monitoring.CallbacksReceived.WithLabelValues("transfer", "error").Inc()
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	monitoring.CallbacksReceived.WithLabelValues("transfer", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
