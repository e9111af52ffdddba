package wings

import "fmt"

// DeleteServer removes a server's data from the node. Used to clean the
// source node up after a completed transfer.
func (c *Client) DeleteServer(serverUUID string) (*Response, error) {
	return c.delete(fmt.Sprintf("/api/servers/%s", serverUUID))
}

// SyncServer tells the agent to re-fetch the server's configuration from
// the panel.
func (c *Client) SyncServer(serverUUID string) (*Response, error) {
	return c.post(fmt.Sprintf("/api/servers/%s/sync", serverUUID), nil)
}
