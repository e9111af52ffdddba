package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/transfer"
	"github.com/perchhost/panel/internal/wings"
)

// AdminTransferHandler exposes transfer initiation and inspection to
// administrators.
type AdminTransferHandler struct {
	servers     *repository.ServerRepository
	transfers   *repository.TransferRepository
	coordinator *transfer.Coordinator
}

func NewAdminTransferHandler(
	servers *repository.ServerRepository,
	transfers *repository.TransferRepository,
	coordinator *transfer.Coordinator,
) *AdminTransferHandler {
	return &AdminTransferHandler{servers: servers, transfers: transfers, coordinator: coordinator}
}

func (h *AdminTransferHandler) lookupServer(c *gin.Context) (*models.Server, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError("Invalid server id"))
		return nil, false
	}

	server, err := h.servers.FindByID(uint(id))
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

// Initiate handles POST /api/admin/servers/:id/transfer
func (h *AdminTransferHandler) Initiate(c *gin.Context) {
	server, ok := h.lookupServer(c)
	if !ok {
		return
	}

	var req struct {
		NodeID *uint `json:"node_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError("A destination node_id is required"))
		return
	}

	record, err := h.coordinator.Initiate(server, *req.NodeID)
	if err != nil {
		handleInitiateError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, record)
}

// Status handles GET /api/admin/servers/:id/transfer
func (h *AdminTransferHandler) Status(c *gin.Context) {
	server, ok := h.lookupServer(c)
	if !ok {
		return
	}

	record, err := h.transfers.FindLatestByServer(server.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTransferNotFound) {
			middleware.HandleAppError(c, middleware.NewNotFoundError("Transfer"))
		} else {
			middleware.HandleAppError(c, middleware.NewInternalError(err))
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// Cancel handles DELETE /api/admin/servers/:id/transfer
//
// The abort is asynchronous: the source agent acknowledges the request
// and later reports through the failure callback, which reverts state.
func (h *AdminTransferHandler) Cancel(c *gin.Context) {
	server, ok := h.lookupServer(c)
	if !ok {
		return
	}

	if err := h.coordinator.Cancel(server); err != nil {
		switch {
		case errors.Is(err, transfer.ErrNoActiveTransfer):
			middleware.HandleAppError(c, middleware.NewNotFoundError("Active transfer"))
		case errors.Is(err, repository.ErrNodeNotFound):
			middleware.HandleAppError(c, middleware.NewNotFoundError("Node"))
		default:
			var agentErr *wings.Error
			if errors.As(err, &agentErr) {
				c.JSON(agentErr.StatusCode, gin.H{
					"error": agentErr.Message,
					"code":  string(agentErr.Kind),
				})
				return
			}
			middleware.HandleAppError(c, middleware.NewInternalError(err))
		}
		return
	}

	c.Status(http.StatusAccepted)
}

func handleInitiateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, transfer.ErrSameNode):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Server is already on the requested node",
			"code":  "INVALID_DESTINATION_NODE",
		})
	case errors.Is(err, transfer.ErrAlreadyTransferring):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Server already has a transfer in progress",
			"code":  "TRANSFER_IN_PROGRESS",
		})
	case errors.Is(err, transfer.ErrNotTransferable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Server cannot be transferred in its current status",
			"code":  "SERVER_NOT_TRANSFERABLE",
		})
	case errors.Is(err, repository.ErrNodeNotFound):
		middleware.HandleAppError(c, middleware.NewNotFoundError("Node"))
	default:
		var agentErr *wings.Error
		if errors.As(err, &agentErr) {
			c.JSON(agentErr.StatusCode, gin.H{
				"error": agentErr.Message,
				"code":  string(agentErr.Kind),
			})
			return
		}
		middleware.HandleAppError(c, middleware.NewInternalError(err))
	}
}
