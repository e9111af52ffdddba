package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/monitoring"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/pkg/config"
	"github.com/perchhost/panel/pkg/logger"
)

// BackupStore is the slice of backup persistence the handler needs.
type BackupStore interface {
	FindByUUID(uuid string) (*models.Backup, error)
	MarkCompleted(id uint, c repository.BackupCompletion) error
}

// BackupServerStore resolves and mutates the server a backup belongs to.
type BackupServerStore interface {
	FindByID(id uint) (*models.Server, error)
	UpdateStatus(id uint, status models.ServerStatus) error
}

type RemoteBackupHandler struct {
	backups BackupStore
	servers BackupServerStore
	bus     events.Publisher
	cfg     *config.Config
}

func NewRemoteBackupHandler(
	backups BackupStore,
	servers BackupServerStore,
	bus events.Publisher,
	cfg *config.Config,
) *RemoteBackupHandler {
	return &RemoteBackupHandler{backups: backups, servers: servers, bus: bus, cfg: cfg}
}

// resolve loads the backup and its server, verifying both exist and the
// server lives on the reporting node. Unknown and foreign backups get
// the same 404.
func (h *RemoteBackupHandler) resolve(c *gin.Context) (*models.Backup, *models.Server, bool) {
	node, ok := middleware.NodeFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Invalid node credentials",
			"code":  "INVALID_WINGS_AUTH",
		})
		return nil, nil, false
	}

	backup, err := h.backups.FindByUUID(c.Param("uuid"))
	if err != nil {
		if errors.Is(err, repository.ErrBackupNotFound) {
			middleware.HandleAppError(c, middleware.NewNotFoundError("Backup"))
		} else {
			middleware.HandleAppError(c, middleware.NewInternalError(err))
		}
		return nil, nil, false
	}

	server, err := h.servers.FindByID(backup.ServerID)
	if err != nil || server.NodeID != node.ID {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Backup"))
		return nil, nil, false
	}

	return backup, server, true
}

// UploadInfo handles GET /api/remote/backups/:uuid/upload
//
// Returns the multipart layout for the archive the node is about to
// push: one part URL per chunk plus the chunk size.
func (h *RemoteBackupHandler) UploadInfo(c *gin.Context) {
	backup, _, ok := h.resolve(c)
	if !ok {
		return
	}

	size, err := strconv.ParseInt(c.Query("size"), 10, 64)
	if err != nil || size <= 0 {
		middleware.HandleAppError(c, middleware.NewBadRequestError("A valid archive size is required"))
		return
	}

	partSize := h.cfg.BackupUploadPartSize
	if partSize <= 0 {
		partSize = config.DefaultBackupUploadPartSize
	}
	partCount := (size + partSize - 1) / partSize

	parts := make([]string, 0, partCount)
	for i := int64(1); i <= partCount; i++ {
		parts = append(parts, fmt.Sprintf("%s/api/remote/backups/%s/upload/%d", h.cfg.BaseURL, backup.UUID, i))
	}

	c.JSON(http.StatusOK, gin.H{
		"parts":     parts,
		"part_size": partSize,
	})
}

// Complete handles POST /api/remote/backups/:uuid
func (h *RemoteBackupHandler) Complete(c *gin.Context) {
	backup, server, ok := h.resolve(c)
	if !ok {
		return
	}

	var req struct {
		Checksum     string `json:"checksum" binding:"required"`
		ChecksumType string `json:"checksum_type" binding:"required"`
		Size         int64  `json:"size" binding:"required"`
		Successful   *bool  `json:"successful" binding:"required"`
		UploadID     string `json:"upload_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		monitoring.CallbacksReceived.WithLabelValues("backup", "rejected").Inc()
		middleware.HandleAppError(c, middleware.NewBadRequestError("Missing required completion fields"))
		return
	}

	completion := repository.BackupCompletion{
		Checksum:   req.ChecksumType + ":" + req.Checksum,
		Bytes:      req.Size,
		Successful: *req.Successful,
		UploadID:   req.UploadID,
	}
	if err := h.backups.MarkCompleted(backup.ID, completion); err != nil {
		monitoring.CallbacksReceived.WithLabelValues("backup", "error").Inc()
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	monitoring.CallbacksReceived.WithLabelValues("backup", "ok").Inc()
	h.bus.Publish(events.Event{
		Type:     events.EventBackupCompleted,
		ServerID: server.ID,
		Data: map[string]interface{}{
			"backup_uuid": backup.UUID,
			"successful":  *req.Successful,
			"bytes":       req.Size,
		},
	})

	c.Status(http.StatusNoContent)
}

// Restore handles POST /api/remote/backups/:uuid/restore
//
// The agent reports that a restore finished; the server leaves the
// restoring_backup status either way.
func (h *RemoteBackupHandler) Restore(c *gin.Context) {
	backup, server, ok := h.resolve(c)
	if !ok {
		return
	}

	var req struct {
		Successful *bool `json:"successful" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		monitoring.CallbacksReceived.WithLabelValues("restore", "rejected").Inc()
		middleware.HandleAppError(c, middleware.NewBadRequestError("Missing required restore fields"))
		return
	}

	if server.Status == models.StatusRestoringBackup {
		if err := h.servers.UpdateStatus(server.ID, models.StatusOffline); err != nil {
			middleware.HandleAppError(c, middleware.NewInternalError(err))
			return
		}
	}

	if !*req.Successful {
		logger.Warn("Backup restore reported as failed", map[string]interface{}{
			"backup_uuid": backup.UUID,
			"server_uuid": server.UUID,
		})
	}

	monitoring.CallbacksReceived.WithLabelValues("restore", "ok").Inc()
	h.bus.Publish(events.Event{
		Type:     events.EventBackupRestored,
		ServerID: server.ID,
		Data: map[string]interface{}{
			"backup_uuid": backup.UUID,
			"successful":  *req.Successful,
		},
	})

	c.Status(http.StatusNoContent)
}
