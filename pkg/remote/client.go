// Package remote speaks the small JSON-over-HTTP handshake protocol
// described in the fabric's remote proxy component: handshake, metadata
// fetch, list, dispatch, and ping against another registry instance.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/envelope"
)

// RemoteMetadata is the shape returned by GET /registry/tool/{name} on
// the remote side, mirrored locally on successful registration.
type RemoteMetadata struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Capabilities []string           `json:"capabilities"`
	Actions      []RemoteAction     `json:"actions"`
}

// RemoteAction mirrors an action descriptor fetched from the remote
// side's action catalog.
type RemoteAction struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional"`
}

// RemoteToolSummary is one entry of the remote side's GET /registry/tools
// listing, used by sync_remote.
type RemoteToolSummary struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Client talks to one remote registry instance at BaseURL.
type Client struct {
	BaseURL     string
	AuthRef     string
	httpClient  *http.Client
	credentials *credential.Registry
}

// NewClient builds a client for a remote registry endpoint.
func NewClient(baseURL, authRef string, credentials *credential.Registry, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{BaseURL: baseURL, AuthRef: authRef, httpClient: httpClient, credentials: credentials}
}

func (c *Client) authHeader(ctx context.Context) (string, error) {
	if c.AuthRef == "" || c.credentials == nil {
		return "", nil
	}
	return c.credentials.Resolve(ctx, c.AuthRef)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if header, err := c.authHeader(ctx); err != nil {
		return err
	} else if header != "" {
		req.Header.Set("Authorization", header)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote returned status %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Handshake performs POST /registry/handshake. A non-compatible or
// failing handshake is the caller's signal to fail registration with
// an upstream kind.
func (c *Client) Handshake(ctx context.Context, client, version string) error {
	var out struct {
		Compatible bool `json:"compatible"`
	}
	if err := c.do(ctx, http.MethodPost, "/registry/handshake", map[string]string{
		"client": client, "version": version,
	}, &out); err != nil {
		return err
	}
	if !out.Compatible {
		return fmt.Errorf("remote registry reported incompatible handshake")
	}
	return nil
}

// GetToolMetadata fetches GET /registry/tool/{name}.
func (c *Client) GetToolMetadata(ctx context.Context, name string) (*RemoteMetadata, error) {
	var meta RemoteMetadata
	if err := c.do(ctx, http.MethodGet, "/registry/tool/"+name, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListTools fetches GET /registry/tools?origin=local for sync_remote.
func (c *Client) ListTools(ctx context.Context) ([]RemoteToolSummary, error) {
	var out struct {
		Tools []RemoteToolSummary `json:"tools"`
	}
	if err := c.do(ctx, http.MethodGet, "/registry/tools?origin=local", nil, &out); err != nil {
		return nil, err
	}
	return out.Tools, nil
}

// Call dispatches POST /registry/call/{tool_id}/{action}, trusting the
// remote side to return a conforming C1 envelope, which is passed
// through verbatim.
func (c *Client) Call(ctx context.Context, toolID, action string, params map[string]interface{}) *envelope.Envelope {
	var env envelope.Envelope
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/registry/call/%s/%s", toolID, action), map[string]interface{}{
		"params": params,
	}, &env)
	if err != nil {
		return envelope.AsTransport(err.Error())
	}
	return &env
}

// Ping performs GET /registry/tool/{tool_id}/health, used by the health
// monitor's liveness probe.
func (c *Client) Ping(ctx context.Context, toolID string) bool {
	var env envelope.Envelope
	err := c.do(ctx, http.MethodGet, "/registry/tool/"+toolID+"/health", nil, &env)
	if err != nil {
		return false
	}
	return env.Success
}
