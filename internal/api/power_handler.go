package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/power"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/wings"
)

type PowerHandler struct {
	servers *repository.ServerRepository
	power   *power.Service
}

func NewPowerHandler(servers *repository.ServerRepository, powerService *power.Service) *PowerHandler {
	return &PowerHandler{servers: servers, power: powerService}
}

// Power handles POST /api/servers/:uuidShort/power/:action
func (h *PowerHandler) Power(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		middleware.HandleAppError(c, middleware.NewUnauthorizedError("Not authenticated"))
		return
	}

	// Validate the action before touching anything else; an unknown
	// verb never reaches the database or the network.
	action, err := wings.ParsePowerAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid power action. Must be one of: start, stop, restart, kill",
			"code":  "INVALID_POWER_ACTION",
		})
		return
	}

	server, err := h.servers.FindByUUIDShort(c.Param("uuidShort"))
	if err != nil {
		if errors.Is(err, repository.ErrServerNotFound) {
			middleware.HandleAppError(c, middleware.NewNotFoundError("Server"))
		} else {
			middleware.HandleAppError(c, middleware.NewInternalError(err))
		}
		return
	}

	if err := h.power.Dispatch(user, server, action); err != nil {
		handlePowerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handlePowerError maps dispatch failures to the fixed taxonomy; agent
// failures keep their upstream status and kind code.
func handlePowerError(c *gin.Context, err error) {
	if errors.Is(err, power.ErrPermissionDenied) {
		middleware.HandleAppError(c, middleware.NewForbiddenError("You do not have permission to perform this action"))
		return
	}
	if errors.Is(err, repository.ErrNodeNotFound) {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Node"))
		return
	}

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
