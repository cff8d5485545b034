// Package hostclient talks to the host's admin surface: GET /diagnostics,
// GET /settings (environment graph inputs) and GET /flows (application
// graph input). These are consumed, not defined, by the core (§6 "Host
// dependencies").
package hostclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nrua/urdf-core/internal/urdferr"
)

// Client is a thin wrapper over the host's HTTP admin surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://127.0.0.1:1880").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return urdferr.Wrap(urdferr.KindTransient, "building request to "+path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return urdferr.Wrap(urdferr.KindTransient, "host admin surface unreachable at "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return urdferr.New(urdferr.KindTransient, fmt.Sprintf("%s returned %d: %s", path, resp.StatusCode, body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ping probes the admin surface with a lightweight GET, used by the
// readiness wait loop (§5 "admin-API readiness wait").
func (c *Client) Ping(ctx context.Context) error {
	var discard interface{}
	return c.getJSON(ctx, "/diagnostics", &discard)
}

// Environment fetches /diagnostics and /settings concurrently, grounded on
// the pack's errgroup fan-out-and-abort-on-error pattern, and returns both
// as raw decoded documents for the environment graph builder.
func (c *Client) Environment(ctx context.Context) (diagnostics, settings map[string]interface{}, err error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return c.getJSON(egCtx, "/diagnostics", &diagnostics) })
	eg.Go(func() error { return c.getJSON(egCtx, "/settings", &settings) })
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return diagnostics, settings, nil
}

// Flows fetches the current flow configuration document.
func (c *Client) Flows(ctx context.Context) ([]map[string]interface{}, error) {
	var flows []map[string]interface{}
	if err := c.getJSON(ctx, "/flows", &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// WaitReady polls Ping up to attempts times at interval, per §5's 30×@1s
// default. A final failure is TransientUpstream, non-fatal to the caller.
func WaitReady(ctx context.Context, c *Client, attempts int, interval time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := c.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return urdferr.Wrap(urdferr.KindTransient, "host admin surface never became reachable", lastErr)
}
