package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityRecord is one operational log entry reported by a node agent.
// Timestamps are normalized to UTC on ingestion regardless of the format
// the agent sent.
type ActivityRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ServerID  uint           `gorm:"not null;index" json:"server_id"`
	NodeID    uint           `gorm:"not null;index" json:"node_id"`
	UserID    *uint          `gorm:"index" json:"user_id,omitempty"`
	Event     string         `gorm:"size:255;not null;index" json:"event"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	IP        string         `gorm:"size:45" json:"ip,omitempty"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name
func (ActivityRecord) TableName() string {
	return "activity_records"
}
