package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/wings"
)

// NodeAgent is the slice of the agent client the node handler drives.
type NodeAgent interface {
	TestConnection() bool
	SystemInfo() (*wings.Response, error)
}

// NodeAgentFactory builds an agent client for a node.
type NodeAgentFactory func(node *models.Node) NodeAgent

// NodeStore is the slice of node persistence the handler needs.
type NodeStore interface {
	FindAll() ([]*models.Node, error)
	FindByID(id uint) (*models.Node, error)
}

// AdminNodeHandler exposes the node inventory and live agent health to
// administrators.
type AdminNodeHandler struct {
	nodes  NodeStore
	agents NodeAgentFactory
}

func NewAdminNodeHandler(nodes NodeStore, agents NodeAgentFactory) *AdminNodeHandler {
	return &AdminNodeHandler{nodes: nodes, agents: agents}
}

// List handles GET /api/admin/nodes
func (h *AdminNodeHandler) List(c *gin.Context) {
	nodes, err := h.nodes.FindAll()
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": nodes})
}

// Health handles GET /api/admin/nodes/:id/health
//
// Checks the node's agent synchronously: whether it answers at all, and
// its reported system information when it does.
func (h *AdminNodeHandler) Health(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError("Invalid node id"))
		return
	}

	node, err := h.nodes.FindByID(uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			middleware.HandleAppError(c, middleware.NewNotFoundError("Node"))
		} else {
			middleware.HandleAppError(c, middleware.NewInternalError(err))
		}
		return
	}

	agent := h.agents(node)
	if !agent.TestConnection() {
		c.JSON(http.StatusOK, gin.H{
			"node_id":   node.ID,
			"connected": false,
		})
		return
	}

	var system map[string]interface{}
	if resp, err := agent.SystemInfo(); err == nil {
		system = resp.Data
	}

	c.JSON(http.StatusOK, gin.H{
		"node_id":   node.ID,
		"connected": true,
		"system":    system,
	})
}
