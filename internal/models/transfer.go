package models

import (
	"time"
)

// TransferStatus represents the state of a server relocation
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusInProgress TransferStatus = "in_progress"
	TransferStatusCompleted  TransferStatus = "completed"
	TransferStatusFailed     TransferStatus = "failed"
)

// Transfer records one relocation of a server between two nodes.
// At most one non-terminal transfer may exist per server; terminal
// transfers never transition again, a retry needs a new record.
type Transfer struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	ServerID          uint           `gorm:"not null;index" json:"server_id"`
	SourceNodeID      uint           `gorm:"not null" json:"source_node_id"`
	DestinationNodeID uint           `gorm:"not null" json:"destination_node_id"`
	Status            TransferStatus `gorm:"size:20;not null;index" json:"status"`
	Progress          float64        `gorm:"not null;default:0" json:"progress"` // 0-100
	Error             string         `gorm:"type:text" json:"error,omitempty"`
	StartedAt         time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Transfer) TableName() string {
	return "transfers"
}

// IsTerminal reports whether the transfer has reached a final state.
func (t *Transfer) IsTerminal() bool {
	return t.Status == TransferStatusCompleted || t.Status == TransferStatusFailed
}
