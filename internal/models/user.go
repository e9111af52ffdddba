package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is a panel account. Only the fields the control plane needs are
// modeled here; profile and billing data live elsewhere.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         string    `gorm:"size:36;not null;uniqueIndex" json:"uuid"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Banned       bool      `gorm:"not null;default:false" json:"banned"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// Subuser links a non-owner user to a server with a capability list.
// Permissions holds panel capability strings, e.g. ["files.read"] or ["*"].
type Subuser struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index:idx_subusers_user_server,unique" json:"user_id"`
	ServerID    uint           `gorm:"not null;index:idx_subusers_user_server,unique" json:"server_id"`
	Permissions datatypes.JSON `json:"permissions"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Subuser) TableName() string {
	return "subusers"
}
