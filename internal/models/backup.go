package models

import (
	"time"
)

// Backup represents a server backup record. The panel creates the row
// before the agent begins work; only the agent's completion callback
// mutates it afterwards.
type Backup struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         string     `gorm:"size:36;not null;uniqueIndex" json:"uuid"`
	ServerID     uint       `gorm:"not null;index" json:"server_id"`
	Name         string     `gorm:"size:255" json:"name"`
	IsSuccessful bool       `gorm:"not null;default:false" json:"is_successful"`
	IsLocked     bool       `gorm:"not null;default:false" json:"is_locked"`
	Checksum     string     `gorm:"size:128" json:"checksum"`
	Bytes        int64      `gorm:"not null;default:0" json:"bytes"`
	UploadID     string     `gorm:"size:255" json:"upload_id,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Backup) TableName() string {
	return "backups"
}
