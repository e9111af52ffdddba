package wings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perchhost/panel/internal/monitoring"
	"github.com/perchhost/panel/pkg/logger"
)

// Client talks to one node's Wings agent over HTTP. All calls are
// synchronous and bounded by the client timeout; a timed-out or failed
// call is reported as a generic agent error, never as a raw transport
// error.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// Response is the success arm of an agent call.
type Response struct {
	StatusCode int
	Data       map[string]interface{}
}

// NewClient creates a client for the agent at scheme://host:port.
func NewClient(scheme, host string, port int, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   fmt.Sprintf("%s://%s:%d", scheme, strings.TrimRight(host, "/"), port),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TestConnection checks whether the agent answers on its system endpoint.
func (c *Client) TestConnection() bool {
	_, err := c.get("/api/system")
	return err == nil
}

// SystemInfo fetches the agent's system information.
func (c *Client) SystemInfo() (*Response, error) {
	return c.get("/api/system")
}

func (c *Client) get(endpoint string) (*Response, error) {
	return c.request(http.MethodGet, endpoint, nil)
}

func (c *Client) post(endpoint string, payload interface{}) (*Response, error) {
	return c.request(http.MethodPost, endpoint, payload)
}

func (c *Client) delete(endpoint string) (*Response, error) {
	return c.request(http.MethodDelete, endpoint, nil)
}

func (c *Client) request(method, endpoint string, payload interface{}) (*Response, error) {
	start := time.Now()
	resp, err := c.do(method, endpoint, payload)
	monitoring.ObserveAgentRequest(method, time.Since(start), err)
	return resp, err
}

func (c *Client) do(method, endpoint string, payload interface{}) (*Response, error) {
	body := []byte("{}")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, transportError(err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Agent request failed", map[string]interface{}{
			"method":   method,
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var data map[string]interface{}
	if len(raw) > 0 {
		// Agents answer some endpoints with an empty body; a decode
		// failure on a 2xx is tolerated, on an error it only costs us
		// the upstream message.
		_ = json.Unmarshal(raw, &data)
	}

	if resp.StatusCode >= 400 {
		message := ""
		if data != nil {
			if errStr, ok := data["error"].(string); ok {
				message = errStr
			}
		}
		return nil, classify(resp.StatusCode, message)
	}

	return &Response{StatusCode: resp.StatusCode, Data: data}, nil
}
