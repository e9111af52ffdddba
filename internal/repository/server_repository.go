package repository

import (
	"errors"

	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ErrServerNotFound is returned when a server cannot be resolved.
var ErrServerNotFound = errors.New("server not found")

// ServerRepository handles database operations for servers
type ServerRepository struct {
	db *gorm.DB
}

// NewServerRepository creates a new server repository
func NewServerRepository(db *gorm.DB) *ServerRepository {
	return &ServerRepository{db: db}
}

// Create creates a new server in the database
func (r *ServerRepository) Create(server *models.Server) error {
	return r.db.Create(server).Error
}

// FindByID finds a server by ID
func (r *ServerRepository) FindByID(id uint) (*models.Server, error) {
	var server models.Server
	return &server, r.first(r.db.Where("id = ?", id), &server)
}

// FindByUUID finds a server by its full UUID
func (r *ServerRepository) FindByUUID(uuid string) (*models.Server, error) {
	var server models.Server
	return &server, r.first(r.db.Where("uuid = ?", uuid), &server)
}

// FindByUUIDShort finds a server by its short UUID
func (r *ServerRepository) FindByUUIDShort(uuidShort string) (*models.Server, error) {
	var server models.Server
	return &server, r.first(r.db.Where("uuid_short = ?", uuidShort), &server)
}

// FindByNode returns the servers assigned to a node, paginated.
func (r *ServerRepository) FindByNode(nodeID uint, offset, limit int) ([]*models.Server, int64, error) {
	var servers []*models.Server
	var total int64

	query := r.db.Model(&models.Server{}).Where("node_id = ?", nodeID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&servers).Error
	return servers, total, err
}

// UpdateStatus updates only the server's status
func (r *ServerRepository) UpdateStatus(id uint, status models.ServerStatus) error {
	return r.db.Model(&models.Server{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateStatusAndNode updates the server's status and node assignment in
// one write. Used by the transfer coordinator so the two fields never
// diverge mid-callback.
func (r *ServerRepository) UpdateStatusAndNode(id uint, status models.ServerStatus, nodeID uint) error {
	return r.db.Model(&models.Server{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  status,
			"node_id": nodeID,
		}).Error
}

// ResetStatusByNode moves every server on the node out of transient
// states, used when an agent reports a cold boot.
func (r *ServerRepository) ResetStatusByNode(nodeID uint) (int64, error) {
	result := r.db.Model(&models.Server{}).
		Where("node_id = ? AND status IN ?", nodeID, []models.ServerStatus{
			models.StatusStarting,
			models.StatusStopping,
			models.StatusRunning,
		}).
		Update("status", models.StatusOffline)
	return result.RowsAffected, result.Error
}

func (r *ServerRepository) first(query *gorm.DB, dest *models.Server) error {
	err := query.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrServerNotFound
	}
	return err
}
