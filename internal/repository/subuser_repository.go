package repository

import (
	"encoding/json"
	"errors"

	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ErrSubuserNotFound is returned when no subuser link exists.
var ErrSubuserNotFound = errors.New("subuser not found")

// SubuserRepository handles database operations for subusers
type SubuserRepository struct {
	db *gorm.DB
}

// NewSubuserRepository creates a new subuser repository
func NewSubuserRepository(db *gorm.DB) *SubuserRepository {
	return &SubuserRepository{db: db}
}

// FindByUserAndServer finds the subuser link between a user and a server.
func (r *SubuserRepository) FindByUserAndServer(userID, serverID uint) (*models.Subuser, error) {
	var subuser models.Subuser
	err := r.db.Where("user_id = ? AND server_id = ?", userID, serverID).First(&subuser).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubuserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subuser, nil
}

// PermissionsFor returns the capability strings granted to a user on a
// server. ErrSubuserNotFound means no link exists at all, which is a
// different case from a link with an empty list.
func (r *SubuserRepository) PermissionsFor(userID, serverID uint) ([]string, error) {
	subuser, err := r.FindByUserAndServer(userID, serverID)
	if err != nil {
		return nil, err
	}

	var perms []string
	if len(subuser.Permissions) > 0 {
		if err := json.Unmarshal(subuser.Permissions, &perms); err != nil {
			return nil, err
		}
	}
	return perms, nil
}
