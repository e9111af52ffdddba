package repository

import (
	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ActivityRepository handles database operations for activity records
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create stores one activity record
func (r *ActivityRepository) Create(record *models.ActivityRecord) error {
	return r.db.Create(record).Error
}

// FindByServer returns the most recent activity for a server.
func (r *ActivityRepository) FindByServer(serverID uint, limit int) ([]*models.ActivityRecord, error) {
	var records []*models.ActivityRecord
	err := r.db.Where("server_id = ?", serverID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
