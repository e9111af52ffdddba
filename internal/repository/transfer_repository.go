package repository

import (
	"errors"
	"time"

	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ErrTransferNotFound is returned when no transfer record exists.
var ErrTransferNotFound = errors.New("transfer not found")

// TransferRepository handles database operations for server transfers
type TransferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create creates a new transfer record
func (r *TransferRepository) Create(transfer *models.Transfer) error {
	return r.db.Create(transfer).Error
}

// FindLatestByServer returns the most recent transfer for a server.
func (r *TransferRepository) FindLatestByServer(serverID uint) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.Where("server_id = ?", serverID).
		Order("id DESC").
		First(&transfer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// FindActiveByServer returns the server's non-terminal transfer, if any.
func (r *TransferRepository) FindActiveByServer(serverID uint) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.Where("server_id = ? AND status IN ?", serverID, []models.TransferStatus{
		models.TransferStatusPending,
		models.TransferStatusInProgress,
	}).Order("id DESC").First(&transfer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// HasActive reports whether the server has a non-terminal transfer.
func (r *TransferRepository) HasActive(serverID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Transfer{}).
		Where("server_id = ? AND status IN ?", serverID, []models.TransferStatus{
			models.TransferStatusPending,
			models.TransferStatusInProgress,
		}).Count(&count).Error
	return count > 0, err
}

// MarkInProgress moves a pending transfer to in_progress.
func (r *TransferRepository) MarkInProgress(id uint) error {
	return r.db.Model(&models.Transfer{}).
		Where("id = ?", id).
		Update("status", models.TransferStatusInProgress).Error
}

// MarkCompleted finalizes a transfer as successful. The status guard
// makes replayed callbacks a no-op at the row level.
func (r *TransferRepository) MarkCompleted(id uint) error {
	now := time.Now()
	return r.db.Model(&models.Transfer{}).
		Where("id = ? AND status IN ?", id, []models.TransferStatus{
			models.TransferStatusPending,
			models.TransferStatusInProgress,
		}).
		Updates(map[string]interface{}{
			"status":       models.TransferStatusCompleted,
			"progress":     100.0,
			"completed_at": now,
		}).Error
}

// MarkFailed finalizes a transfer as failed with an error message.
func (r *TransferRepository) MarkFailed(id uint, errMsg string) error {
	now := time.Now()
	return r.db.Model(&models.Transfer{}).
		Where("id = ? AND status IN ?", id, []models.TransferStatus{
			models.TransferStatusPending,
			models.TransferStatusInProgress,
		}).
		Updates(map[string]interface{}{
			"status":       models.TransferStatusFailed,
			"completed_at": now,
			"error":        errMsg,
		}).Error
}

// UpdateProgress records archive-transfer progress (0-100).
func (r *TransferRepository) UpdateProgress(id uint, progress float64) error {
	return r.db.Model(&models.Transfer{}).
		Where("id = ?", id).
		Update("progress", progress).Error
}
