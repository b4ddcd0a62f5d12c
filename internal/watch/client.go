// Package watch follows a running decoder through its status server.
package watch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/ColonelBlimp/morsekey/internal/publish"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout bounds each status request.
const DefaultTimeout = 2 * time.Second

// Status is one poll of a decoder.
type Status struct {
	Snapshot publish.Snapshot
	Stats    cw.Stats
}

// Fetcher retrieves the current status.
type Fetcher interface {
	Fetch(ctx context.Context) (Status, error)
}

// Client reads /message and /stats from a status server.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for baseURL. A bare host:port is treated as http.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.base
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context) (Status, error) {
	var st Status
	if err := c.getJSON(ctx, "/message", &st.Snapshot); err != nil {
		return Status{}, err
	}
	if err := c.getJSON(ctx, "/stats", &st.Stats); err != nil {
		return Status{}, err
	}
	return st, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %s", path, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
