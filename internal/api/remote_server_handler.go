package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// RemoteServerHandler serves node agents their view of the server fleet.
type RemoteServerHandler struct {
	servers *repository.ServerRepository
}

func NewRemoteServerHandler(servers *repository.ServerRepository) *RemoteServerHandler {
	return &RemoteServerHandler{servers: servers}
}

// List handles GET /api/remote/servers
//
// Paginated configuration listing for the authenticated node, used by
// agents to rebuild local state after a restart.
func (h *RemoteServerHandler) List(c *gin.Context) {
	node, ok := middleware.NodeFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Invalid node credentials",
			"code":  "INVALID_WINGS_AUTH",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPageSize)))
	if perPage < 1 || perPage > maxPageSize {
		perPage = defaultPageSize
	}

	servers, total, err := h.servers.FindByNode(node.ID, (page-1)*perPage, perPage)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	data := make([]gin.H, 0, len(servers))
	for _, server := range servers {
		data = append(data, gin.H{
			"uuid":       server.UUID,
			"uuid_short": server.UUIDShort,
			"name":       server.Name,
			"status":     server.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{
			"current_page": page,
			"per_page":     perPage,
			"total":        total,
		},
	})
}

// ResetStatus handles POST /api/remote/servers/reset
//
// An agent that restarted no longer knows which containers were mid
// power cycle; every server of the node stuck in a transient status is
// pushed back to offline so state rebuilds cleanly.
func (h *RemoteServerHandler) ResetStatus(c *gin.Context) {
	node, ok := middleware.NodeFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Invalid node credentials",
			"code":  "INVALID_WINGS_AUTH",
		})
		return
	}

	reset, err := h.servers.ResetStatusByNode(node.ID)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	if reset > 0 {
		logger.Info("Reset transient server statuses for node", map[string]interface{}{
			"node_id": node.ID,
			"count":   reset,
		})
	}

	c.Status(http.StatusNoContent)
}
