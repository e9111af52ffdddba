package power

import (
	"errors"

	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/wings"
	"github.com/perchhost/panel/pkg/logger"
)

// ErrPermissionDenied is returned when a user may not send the action.
var ErrPermissionDenied = errors.New("user lacks permission for this power action")

// AgentClient is the slice of the node agent the power service drives.
type AgentClient interface {
	Power(serverUUID string, action wings.PowerAction) (*wings.Response, error)
}

// ClientFactory builds an agent client for a node.
type ClientFactory func(node *models.Node) AgentClient

// SubuserStore resolves a user's granted permissions on a server.
type SubuserStore interface {
	PermissionsFor(userID, serverID uint) ([]string, error)
}

// NodeStore resolves nodes by id.
type NodeStore interface {
	FindByID(id uint) (*models.Node, error)
}

// Service validates and dispatches power actions against node agents.
type Service struct {
	nodes    NodeStore
	subusers SubuserStore
	clients  ClientFactory
	bus      events.Publisher
}

// NewService creates a power service.
func NewService(nodes NodeStore, subusers SubuserStore, clients ClientFactory, bus events.Publisher) *Service {
	return &Service{
		nodes:    nodes,
		subusers: subusers,
		clients:  clients,
		bus:      bus,
	}
}

// requiredPermission maps an action to the subuser grant it needs. Kill
// is covered by the stop grant; it is just a harder stop.
func requiredPermission(action wings.PowerAction) string {
	if action == wings.PowerKill {
		return "control.stop"
	}
	return "control." + string(action)
}

// Dispatch sends a power action for the server to its node's agent on
// behalf of the user. The action must already be parsed; permission and
// node resolution happen before any network call.
func (s *Service) Dispatch(user *models.User, server *models.Server, action wings.PowerAction) error {
	if err := s.authorize(user, server, action); err != nil {
		return err
	}

	node, err := s.nodes.FindByID(server.NodeID)
	if err != nil {
		return err
	}

	if _, err := s.clients(node).Power(server.UUID, action); err != nil {
		return err
	}

	// Observability only; the action already succeeded.
	s.bus.Publish(events.Event{
		Type:     events.EventServerPowerAction,
		ServerID: server.ID,
		UserID:   user.ID,
		Data: map[string]interface{}{
			"action": string(action),
		},
	})

	logger.Info("Power action dispatched", map[string]interface{}{
		"server_uuid": server.UUID,
		"action":      string(action),
		"user_id":     user.ID,
	})
	return nil
}

func (s *Service) authorize(user *models.User, server *models.Server, action wings.PowerAction) error {
	if user.IsAdmin || server.OwnerID == user.ID {
		return nil
	}

	permissions, err := s.subusers.PermissionsFor(user.ID, server.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSubuserNotFound) {
			return ErrPermissionDenied
		}
		return err
	}

	required := requiredPermission(action)
	for _, permission := range permissions {
		if permission == "*" || permission == required {
			return nil
		}
	}
	return ErrPermissionDenied
}
