package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/models"
)

// NodeResolver authenticates an agent credential pair.
type NodeResolver interface {
	FindByAgentCredentials(tokenID, tokenSecret string) (*models.Node, error)
}

const nodeContextKey = "node"

// NodeAuth authenticates requests from node agents. Agents send
// "Authorization: Bearer <tokenId>.<tokenSecret>"; every failure mode
// gets the same response so callers cannot probe which part was wrong.
func NodeAuth(nodes NodeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			rejectNode(c)
			return
		}

		tokenID, tokenSecret, found := strings.Cut(token, ".")
		if !found || tokenID == "" || tokenSecret == "" {
			rejectNode(c)
			return
		}

		node, err := nodes.FindByAgentCredentials(tokenID, tokenSecret)
		if err != nil {
			rejectNode(c)
			return
		}

		c.Set(nodeContextKey, node)
		c.Set("node_id", node.ID)
		c.Next()
	}
}

func rejectNode(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"error": "Invalid node credentials",
		"code":  "INVALID_WINGS_AUTH",
	})
	c.Abort()
}

// NodeFromContext returns the authenticated node set by NodeAuth.
func NodeFromContext(c *gin.Context) (*models.Node, bool) {
	value, exists := c.Get(nodeContextKey)
	if !exists {
		return nil, false
	}
	node, ok := value.(*models.Node)
	return node, ok
}
