package wings

import (
	"errors"
	"fmt"
)

// PowerAction is the closed set of power commands an agent accepts.
type PowerAction string

const (
	PowerStart   PowerAction = "start"
	PowerStop    PowerAction = "stop"
	PowerRestart PowerAction = "restart"
	PowerKill    PowerAction = "kill"
)

// ErrInvalidPowerAction is returned before any network call when the
// action is not one of the four known commands.
var ErrInvalidPowerAction = errors.New("invalid power action")

// ParsePowerAction validates a raw action string.
func ParsePowerAction(s string) (PowerAction, error) {
	switch PowerAction(s) {
	case PowerStart, PowerStop, PowerRestart, PowerKill:
		return PowerAction(s), nil
	default:
		return "", ErrInvalidPowerAction
	}
}

// waitSeconds returns how long the agent should wait for the action to
// take effect. Kill gets longer because it races a stop already in
// flight.
func (a PowerAction) waitSeconds() int {
	if a == PowerKill {
		return 60
	}
	return 30
}

// Power sends a power command for a server. Invalid actions are rejected
// locally without touching the network.
func (c *Client) Power(serverUUID string, action PowerAction) (*Response, error) {
	if _, err := ParsePowerAction(string(action)); err != nil {
		return nil, err
	}
	return c.post(fmt.Sprintf("/api/servers/%s/power", serverUUID), map[string]interface{}{
		"action":       string(action),
		"wait_seconds": action.waitSeconds(),
	})
}
