// Package gateway probes the long-running agent gateway over its local HTTP
// API and restarts it through the agent CLI.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/missionctl/missionctl/internal/agent"
)

const probeTimeout = 5 * time.Second

// Runner is the slice of the agent client needed to restart the gateway.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Client talks to the gateway HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	agent      Runner
	log        logr.Logger
}

// NewClient creates a gateway client.
func NewClient(baseURL string, agentRunner Runner, log logr.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:18789"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: probeTimeout},
		agent:      agentRunner,
		log:        log.WithName("gateway"),
	}
}

func (c *Client) get(ctx context.Context, path string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agent.NewError(agent.KindAgentUnavailable, "gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, agent.NewError(agent.KindAgentUnavailable,
			fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, body), nil)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, agent.NewError(agent.KindMalformedResponse,
			"failed to decode gateway response", err)
	}
	return out, nil
}

// Status fetches the gateway status document.
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	return c.get(ctx, "/api/status")
}

// Sessions lists the gateway's live agent sessions.
func (c *Client) Sessions(ctx context.Context) (map[string]interface{}, error) {
	return c.get(ctx, "/api/sessions/list")
}

// Restart asks the agent CLI to restart the gateway process.
func (c *Client) Restart(ctx context.Context) error {
	restartCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := c.agent.Run(restartCtx, "gateway", "restart"); err != nil {
		c.log.Error(err, "gateway restart failed")
		return err
	}
	c.log.Info("gateway restart initiated")
	return nil
}
