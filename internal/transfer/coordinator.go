package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/monitoring"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/wings"
	"github.com/perchhost/panel/pkg/logger"
)

// Defaults recorded on failed transfers when the reporting node gave no
// reason, so historical records always carry an explanation.
const (
	DefaultStatusError  = "Unknown error"
	DefaultFailureError = "Unknown transfer failure"
)

// Initiation and cancellation failure classes.
var (
	ErrSameNode            = errors.New("cannot transfer server to the same node")
	ErrAlreadyTransferring = errors.New("server is already being transferred")
	ErrNotTransferable     = errors.New("server cannot be transferred in its current status")
	ErrNoActiveTransfer    = errors.New("server has no active transfer")
)

// ServerStore is the slice of server persistence the coordinator needs.
type ServerStore interface {
	UpdateStatus(id uint, status models.ServerStatus) error
	UpdateStatusAndNode(id uint, status models.ServerStatus, nodeID uint) error
}

// TransferStore is the slice of transfer persistence the coordinator needs.
type TransferStore interface {
	Create(transfer *models.Transfer) error
	FindLatestByServer(serverID uint) (*models.Transfer, error)
	FindActiveByServer(serverID uint) (*models.Transfer, error)
	HasActive(serverID uint) (bool, error)
	MarkInProgress(id uint) error
	MarkCompleted(id uint) error
	MarkFailed(id uint, errMsg string) error
	UpdateProgress(id uint, progress float64) error
}

// NodeStore resolves nodes by id.
type NodeStore interface {
	FindByID(id uint) (*models.Node, error)
}

// BackupStore drops backup records left behind on the source node.
type BackupStore interface {
	DeleteByServer(serverID uint) (int64, error)
}

// AgentClient is the outbound surface the coordinator drives on a node.
type AgentClient interface {
	StartTransfer(serverUUID string, req wings.TransferRequest) (*wings.Response, error)
	CancelTransfer(serverUUID string) (*wings.Response, error)
	DeleteServer(serverUUID string) (*wings.Response, error)
	SyncServer(serverUUID string) (*wings.Response, error)
}

// ClientFactory builds an agent client for a node.
type ClientFactory func(node *models.Node) AgentClient

// Coordinator drives one server relocation between two nodes: it
// dispatches the transfer to the source agent and reconciles the
// success/failure callbacks either node later reports.
//
// A transfer moves pending -> in_progress -> {completed, failed} and
// never leaves a terminal state; retries need a new record. On every
// terminal callback the server row is mutated before any event is
// emitted, because subscribers may read the server and expect it to
// already reflect the outcome.
type Coordinator struct {
	servers   ServerStore
	transfers TransferStore
	nodes     NodeStore
	backups   BackupStore
	clients   ClientFactory
	bus       events.Publisher

	panelURL    string
	tokenExpiry time.Duration
}

// NewCoordinator creates a transfer coordinator.
func NewCoordinator(
	servers ServerStore,
	transfers TransferStore,
	nodes NodeStore,
	backups BackupStore,
	clients ClientFactory,
	bus events.Publisher,
	panelURL string,
	tokenExpiry time.Duration,
) *Coordinator {
	return &Coordinator{
		servers:     servers,
		transfers:   transfers,
		nodes:       nodes,
		backups:     backups,
		clients:     clients,
		bus:         bus,
		panelURL:    panelURL,
		tokenExpiry: tokenExpiry,
	}
}

// Initiate starts relocating a server to the destination node: it mints
// a transfer token for the destination, instructs the source agent to
// begin pushing, and records the transfer. The server's node assignment
// is NOT touched here; it only moves once the destination confirms
// success.
func (c *Coordinator) Initiate(server *models.Server, destinationNodeID uint) (*models.Transfer, error) {
	if server.NodeID == destinationNodeID {
		return nil, ErrSameNode
	}
	if !server.IsTransferable() {
		return nil, ErrNotTransferable
	}
	if active, err := c.transfers.HasActive(server.ID); err != nil {
		return nil, err
	} else if active {
		return nil, ErrAlreadyTransferring
	}

	destination, err := c.nodes.FindByID(destinationNodeID)
	if err != nil {
		return nil, fmt.Errorf("destination node: %w", err)
	}
	source, err := c.nodes.FindByID(server.NodeID)
	if err != nil {
		return nil, fmt.Errorf("source node: %w", err)
	}

	issuer := wings.NewTokenIssuer(destination.TokenSecret, c.panelURL, destination.BaseURL(), c.tokenExpiry)
	token, err := issuer.TransferToken(server.UUID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint transfer token: %w", err)
	}

	// The record exists as pending before the source agent is touched,
	// so a crash mid-dispatch still leaves an auditable row.
	transfer := &models.Transfer{
		ServerID:          server.ID,
		SourceNodeID:      server.NodeID,
		DestinationNodeID: destinationNodeID,
		Status:            models.TransferStatusPending,
		StartedAt:         time.Now(),
	}
	if err := c.transfers.Create(transfer); err != nil {
		// Losing the record is logged rather than failing the request;
		// the failure path can still fall back to the server's current
		// node.
		logger.Error("Failed to create transfer record", err, map[string]interface{}{
			"server_id": server.ID,
		})
		transfer = nil
	} else {
		monitoring.TransfersActive.Inc()
	}

	previousStatus := server.Status
	if err := c.servers.UpdateStatus(server.ID, models.StatusTransferring); err != nil {
		c.abandonPending(transfer, err)
		return nil, err
	}

	_, err = c.clients(source).StartTransfer(server.UUID, wings.TransferRequest{
		URL:   destination.BaseURL() + "/api/transfers",
		Token: "Bearer " + token,
	})
	if err != nil {
		// The source agent never accepted the command; put the server
		// back the way it was.
		if revertErr := c.servers.UpdateStatus(server.ID, previousStatus); revertErr != nil {
			logger.Error("Failed to revert server status after dispatch failure", revertErr, map[string]interface{}{
				"server_id": server.ID,
			})
		}
		c.abandonPending(transfer, err)
		return nil, err
	}

	if transfer != nil {
		if err := c.transfers.MarkInProgress(transfer.ID); err != nil {
			logger.Error("Failed to mark transfer in progress", err, map[string]interface{}{
				"transfer_id": transfer.ID,
			})
		} else {
			transfer.Status = models.TransferStatusInProgress
		}
	}

	c.bus.Publish(events.Event{
		Type:     events.EventTransferInitiated,
		ServerID: server.ID,
		Data: map[string]interface{}{
			"source_node_id":      server.NodeID,
			"destination_node_id": destinationNodeID,
		},
	})

	logger.Info("Server transfer initiated", map[string]interface{}{
		"server_uuid":         server.UUID,
		"source_node_id":      server.NodeID,
		"destination_node_id": destinationNodeID,
	})

	return transfer, nil
}

// abandonPending finalizes a transfer record whose dispatch never got off
// the ground. No callback will ever arrive for it.
func (c *Coordinator) abandonPending(transfer *models.Transfer, cause error) {
	if transfer == nil {
		return
	}
	if err := c.transfers.MarkFailed(transfer.ID, cause.Error()); err != nil {
		logger.Error("Failed to mark abandoned transfer as failed", err, map[string]interface{}{
			"transfer_id": transfer.ID,
		})
	}
	monitoring.TransfersActive.Dec()
}

// Cancel asks the source node to abort the server's in-flight transfer.
// State is not reverted here; the source agent reports the abort through
// the normal failure callback and Fail does the bookkeeping.
func (c *Coordinator) Cancel(server *models.Server) error {
	transfer, err := c.transfers.FindActiveByServer(server.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTransferNotFound) {
			return ErrNoActiveTransfer
		}
		return err
	}

	source, err := c.nodes.FindByID(transfer.SourceNodeID)
	if err != nil {
		return fmt.Errorf("source node: %w", err)
	}

	if _, err := c.clients(source).CancelTransfer(server.UUID); err != nil {
		return err
	}

	logger.Info("Server transfer cancellation requested", map[string]interface{}{
		"server_uuid": server.UUID,
		"transfer_id": transfer.ID,
	})
	return nil
}

// Complete applies a destination node's success report. The server goes
// offline on its new node; if the reported destination does not resolve
// the current assignment is kept, but the transfer still completes so
// the bookkeeping never silently vanishes.
func (c *Coordinator) Complete(server *models.Server, destinationNodeID *uint) error {
	transfer := c.lookupTransfer(server.ID)
	if transfer != nil && transfer.IsTerminal() {
		logger.Warn("Ignoring replayed transfer success", map[string]interface{}{
			"server_uuid": server.UUID,
			"transfer_id": transfer.ID,
			"status":      transfer.Status,
		})
		return nil
	}

	// The status callback may omit the node id; the transfer record
	// knows where the server was headed.
	if destinationNodeID == nil && transfer != nil {
		destinationNodeID = &transfer.DestinationNodeID
	}

	reassigned := false
	var destination *models.Node
	if destinationNodeID != nil {
		if node, err := c.nodes.FindByID(*destinationNodeID); err == nil {
			if err := c.servers.UpdateStatusAndNode(server.ID, models.StatusOffline, *destinationNodeID); err != nil {
				return err
			}
			destination = node
			reassigned = true
		} else {
			logger.Warn("Destination node not found, keeping current node assignment", map[string]interface{}{
				"server_uuid":         server.UUID,
				"destination_node_id": *destinationNodeID,
			})
		}
	}
	if !reassigned {
		if err := c.servers.UpdateStatus(server.ID, models.StatusOffline); err != nil {
			return err
		}
	}

	if transfer != nil {
		if err := c.transfers.MarkCompleted(transfer.ID); err != nil {
			return err
		}
		monitoring.TransfersActive.Dec()
		c.cleanupSourceNode(server, transfer)
	}

	// Best effort: the new node re-fetches the server's configuration so
	// it does not serve a stale copy from the archive.
	if reassigned {
		if _, err := c.clients(destination).SyncServer(server.UUID); err != nil {
			logger.Warn("Failed to sync server on destination node", map[string]interface{}{
				"server_uuid": server.UUID,
				"error":       err.Error(),
			})
		}
	}

	c.bus.Publish(events.Event{
		Type:     events.EventTransferCompleted,
		ServerID: server.ID,
		Data: map[string]interface{}{
			"destination_node_id": destinationNodeID,
		},
	})

	logger.Info("Server transfer completed", map[string]interface{}{
		"server_uuid": server.UUID,
	})
	return nil
}

// Fail applies a failure report from either node. The server always ends
// up offline and pointing at the node that still has its data: the
// transfer's source node, or the server's current node when no transfer
// record survives.
func (c *Coordinator) Fail(server *models.Server, errMsg string) error {
	if errMsg == "" {
		errMsg = DefaultStatusError
	}

	transfer := c.lookupTransfer(server.ID)
	if transfer != nil && transfer.IsTerminal() {
		// The destination may have already reported success before the
		// source noticed anything wrong; a completed transfer is never
		// undone. Duplicate failure reports are dropped the same way.
		logger.Warn("Ignoring transfer failure for terminal transfer", map[string]interface{}{
			"server_uuid": server.UUID,
			"transfer_id": transfer.ID,
			"status":      transfer.Status,
		})
		return nil
	}

	sourceNodeID := server.NodeID
	if transfer != nil {
		sourceNodeID = transfer.SourceNodeID
	}

	if err := c.servers.UpdateStatusAndNode(server.ID, models.StatusOffline, sourceNodeID); err != nil {
		return err
	}

	if transfer != nil {
		if err := c.transfers.MarkFailed(transfer.ID, errMsg); err != nil {
			return err
		}
		monitoring.TransfersActive.Dec()
	}

	c.bus.Publish(events.Event{
		Type:     events.EventTransferFailed,
		ServerID: server.ID,
		Data: map[string]interface{}{
			"source_node_id": sourceNodeID,
			"error":          errMsg,
		},
	})

	logger.Error("Server transfer failed", nil, map[string]interface{}{
		"server_uuid": server.UUID,
		"error":       errMsg,
	})
	return nil
}

// ArchiveReceived records that the destination began receiving the
// archive. The push phase is done, so progress moves to the halfway
// mark; the transfer status itself does not change.
func (c *Coordinator) ArchiveReceived(server *models.Server) {
	logger.Info("Transfer archive received", map[string]interface{}{
		"server_uuid": server.UUID,
	})

	transfer := c.lookupTransfer(server.ID)
	if transfer == nil || transfer.IsTerminal() {
		return
	}
	if err := c.transfers.UpdateProgress(transfer.ID, 50); err != nil {
		logger.Warn("Failed to record transfer progress", map[string]interface{}{
			"transfer_id": transfer.ID,
			"error":       err.Error(),
		})
	}
}

// lookupTransfer returns the server's active transfer, falling back to
// the most recent one, or nil when no record exists at all. Callbacks
// must degrade gracefully rather than error when the record is missing.
func (c *Coordinator) lookupTransfer(serverID uint) *models.Transfer {
	transfer, err := c.transfers.FindActiveByServer(serverID)
	if err == nil {
		return transfer
	}
	if !errors.Is(err, repository.ErrTransferNotFound) {
		logger.Error("Failed to look up active transfer", err, map[string]interface{}{
			"server_id": serverID,
		})
		return nil
	}

	transfer, err = c.transfers.FindLatestByServer(serverID)
	if err != nil {
		if !errors.Is(err, repository.ErrTransferNotFound) {
			logger.Error("Failed to look up transfer", err, map[string]interface{}{
				"server_id": serverID,
			})
		}
		return nil
	}
	return transfer
}

// cleanupSourceNode drops backup records (the files stay behind on the
// source node) and asks the old agent to delete its copy of the server.
// Both are best effort; the transfer already succeeded.
func (c *Coordinator) cleanupSourceNode(server *models.Server, transfer *models.Transfer) {
	if deleted, err := c.backups.DeleteByServer(server.ID); err != nil {
		logger.Warn("Failed to delete backup records after transfer", map[string]interface{}{
			"server_uuid": server.UUID,
			"error":       err.Error(),
		})
	} else if deleted > 0 {
		logger.Info("Deleted backup records for transferred server", map[string]interface{}{
			"server_uuid": server.UUID,
			"count":       deleted,
		})
	}

	source, err := c.nodes.FindByID(transfer.SourceNodeID)
	if err != nil {
		logger.Warn("Source node not found for transfer cleanup", map[string]interface{}{
			"server_uuid":    server.UUID,
			"source_node_id": transfer.SourceNodeID,
		})
		return
	}
	if _, err := c.clients(source).DeleteServer(server.UUID); err != nil {
		logger.Warn("Failed to delete server from source node", map[string]interface{}{
			"server_uuid": server.UUID,
			"error":       err.Error(),
		})
	}
}
