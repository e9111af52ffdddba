package repository

import (
	"errors"
	"time"

	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ErrBackupNotFound is returned when a backup cannot be resolved.
var ErrBackupNotFound = errors.New("backup not found")

// BackupRepository handles database operations for backups
type BackupRepository struct {
	db *gorm.DB
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db *gorm.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Create creates a new backup record
func (r *BackupRepository) Create(backup *models.Backup) error {
	return r.db.Create(backup).Error
}

// FindByUUID finds a backup by UUID
func (r *BackupRepository) FindByUUID(uuid string) (*models.Backup, error) {
	var backup models.Backup
	err := r.db.Where("uuid = ?", uuid).First(&backup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &backup, nil
}

// BackupCompletion carries the agent-reported completion metadata.
type BackupCompletion struct {
	Checksum   string
	Bytes      int64
	Successful bool
	UploadID   string
}

// MarkCompleted applies the agent's completion report to the backup row.
func (r *BackupRepository) MarkCompleted(id uint, c BackupCompletion) error {
	now := time.Now()
	updates := map[string]interface{}{
		"checksum":      c.Checksum,
		"bytes":         c.Bytes,
		"is_successful": c.Successful,
		"is_locked":     false,
		"completed_at":  now,
	}
	if c.UploadID != "" {
		updates["upload_id"] = c.UploadID
	}
	return r.db.Model(&models.Backup{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteByServer removes all backup records for a server. Backup files
// stay on the source node after a transfer, so their records are dropped.
func (r *BackupRepository) DeleteByServer(serverID uint) (int64, error) {
	result := r.db.Where("server_id = ?", serverID).Delete(&models.Backup{})
	return result.RowsAffected, result.Error
}
