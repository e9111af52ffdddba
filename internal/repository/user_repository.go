package repository

import (
	"errors"

	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when a user cannot be resolved.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles database operations for users
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	return &user, r.first(r.db.Where("id = ?", id), &user)
}

// FindByUUID finds a user by UUID
func (r *UserRepository) FindByUUID(uuid string) (*models.User, error) {
	var user models.User
	return &user, r.first(r.db.Where("uuid = ?", uuid), &user)
}

// FindByUsername finds a user by username
func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	return &user, r.first(r.db.Where("username = ?", username), &user)
}

func (r *UserRepository) first(query *gorm.DB, dest *models.User) error {
	err := query.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
