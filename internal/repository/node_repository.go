package repository

import (
	"errors"

	"github.com/perchhost/panel/internal/models"
	"gorm.io/gorm"
)

// ErrNodeNotFound is returned for both unknown token ids and wrong
// secrets so callers cannot distinguish the two.
var ErrNodeNotFound = errors.New("node not found")

// NodeRepository handles database operations for nodes
type NodeRepository struct {
	db *gorm.DB
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(db *gorm.DB) *NodeRepository {
	return &NodeRepository{db: db}
}

// Create creates a new node in the database
func (r *NodeRepository) Create(node *models.Node) error {
	return r.db.Create(node).Error
}

// Update updates an existing node
func (r *NodeRepository) Update(node *models.Node) error {
	return r.db.Save(node).Error
}

// FindByID finds a node by ID
func (r *NodeRepository) FindByID(id uint) (*models.Node, error) {
	var node models.Node
	err := r.db.Where("id = ?", id).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// FindByAgentCredentials resolves a node from its agent token pair.
// Any failure (missing component, unknown id, wrong secret) yields the
// same ErrNodeNotFound.
func (r *NodeRepository) FindByAgentCredentials(tokenID, tokenSecret string) (*models.Node, error) {
	if tokenID == "" || tokenSecret == "" {
		return nil, ErrNodeNotFound
	}

	var node models.Node
	err := r.db.Where("token_id = ? AND token_secret = ?", tokenID, tokenSecret).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// FindAll returns all nodes
func (r *NodeRepository) FindAll() ([]*models.Node, error) {
	var nodes []*models.Node
	err := r.db.Find(&nodes).Error
	return nodes, err
}

// Delete deletes a node by ID
func (r *NodeRepository) Delete(id uint) error {
	return r.db.Where("id = ?", id).Delete(&models.Node{}).Error
}
