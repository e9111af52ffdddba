package models

import (
	"time"
)

// ServerStatus represents the current lifecycle status of a server
type ServerStatus string

const (
	StatusInstalling      ServerStatus = "installing"
	StatusInstallFailed   ServerStatus = "install_failed"
	StatusSuspended       ServerStatus = "suspended"
	StatusRestoringBackup ServerStatus = "restoring_backup"
	StatusTransferring    ServerStatus = "transferring"
	StatusRunning         ServerStatus = "running"
	StatusStarting        ServerStatus = "starting"
	StatusStopping        ServerStatus = "stopping"
	StatusStopped         ServerStatus = "stopped"
	StatusOffline         ServerStatus = "offline"
)

// Server represents a game server instance hosted on a node.
// NodeID is the single source of truth for which agent owns the server;
// it only changes as the final step of a successful transfer.
type Server struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UUID      string       `gorm:"size:36;not null;uniqueIndex" json:"uuid"`
	UUIDShort string       `gorm:"size:8;not null;uniqueIndex" json:"uuid_short"` // Used in agent-facing paths and SFTP usernames
	Name      string       `gorm:"size:255;not null" json:"name"`
	OwnerID   uint         `gorm:"not null;index" json:"owner_id"`
	NodeID    uint         `gorm:"not null;index" json:"node_id"`
	Status    ServerStatus `gorm:"size:30;not null;default:offline;index" json:"status"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Server) TableName() string {
	return "servers"
}

// IsTransferable reports whether a new transfer may be started for the
// server's current status.
func (s *Server) IsTransferable() bool {
	switch s.Status {
	case StatusInstalling, StatusRestoringBackup, StatusTransferring:
		return false
	default:
		return true
	}
}
