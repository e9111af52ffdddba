package wings

import "fmt"

// TransferRequest is the payload handed to the source node to begin
// pushing a server's archive: the destination's transfer endpoint plus a
// bearer token the destination will accept.
type TransferRequest struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// StartTransfer instructs the source node to begin transferring a server
// to the destination described by req.
func (c *Client) StartTransfer(serverUUID string, req TransferRequest) (*Response, error) {
	return c.post(fmt.Sprintf("/api/servers/%s/transfer", serverUUID), req)
}

// CancelTransfer aborts an in-flight outgoing transfer on the source
// node. The panel still waits for the failure callback to revert state.
func (c *Client) CancelTransfer(serverUUID string) (*Response, error) {
	return c.delete(fmt.Sprintf("/api/servers/%s/transfer", serverUUID))
}
