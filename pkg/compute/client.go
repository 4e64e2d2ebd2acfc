package compute

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentdeck/agentdeck-backend/pkg/config"
)

// Client calls the compute orchestrator that owns tenant agent runtimes.
// Calls are best-effort from the ledger's perspective; callers decide whether
// a failure is fatal.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var errBaseURLRequired = errors.New("compute base url is required")

// NewClient builds a compute client from configuration.
func NewClient(cfg config.ComputeConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Resume asks the orchestrator to resume a tenant's agents after a credit
// top-up.
func (c *Client) Resume(ctx context.Context, tenantID string) error {
	if c == nil {
		return errors.New("compute client not initialized")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return errors.New("tenant id is required")
	}

	url := fmt.Sprintf("%s/v1/tenants/%s/resume", c.baseURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("building resume request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling compute resume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("compute resume returned status %d", resp.StatusCode)
	}
	return nil
}
