package models

import (
	"fmt"
	"time"
)

// Node represents a machine running a Wings agent (database model).
// The panel reaches the agent at {Scheme}://{FQDN}:{DaemonPort}; inbound
// requests claiming to come from the agent are matched against the
// TokenID/TokenSecret pair.
type Node struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Scheme      string    `gorm:"size:10;not null;default:http" json:"scheme"` // "http" or "https"
	FQDN        string    `gorm:"size:255;not null;index" json:"fqdn"`
	DaemonPort  int       `gorm:"not null;default:8080" json:"daemon_port"`
	TokenID     string    `gorm:"size:100;not null;index" json:"-"`
	TokenSecret string    `gorm:"size:255;not null" json:"-"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Node) TableName() string {
	return "nodes"
}

// BaseURL returns the agent's base URL.
func (n *Node) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", n.Scheme, n.FQDN, n.DaemonPort)
}
