package remote

import (
	"context"

	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/tool"
)

// Tool proxies a single remote-registered tool over a Client, making it
// satisfy tool.Tool so the registry dispatches to it exactly like a
// local tool.
type Tool struct {
	client  *Client
	toolID  string
	meta    *RemoteMetadata
}

// New wraps a fetched remote metadata record behind the tool.Tool
// contract.
func New(client *Client, toolID string, meta *RemoteMetadata) *Tool {
	return &Tool{client: client, toolID: toolID, meta: meta}
}

func (t *Tool) Name() string        { return t.meta.Name }
func (t *Tool) Version() string     { return t.meta.Version }
func (t *Tool) Description() string { return t.meta.Description }
func (t *Tool) Category() string {
	if t.meta.Category == "" {
		return "remote"
	}
	return t.meta.Category
}
func (t *Tool) Capabilities() []string { return t.meta.Capabilities }

func (t *Tool) Actions() []tool.ActionDescriptor {
	out := make([]tool.ActionDescriptor, 0, len(t.meta.Actions))
	for _, a := range t.meta.Actions {
		out = append(out, tool.ActionDescriptor{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
			Optional:    a.Optional,
		})
	}
	return out
}

// Execute forwards the call to the remote registry and passes its
// envelope through verbatim.
func (t *Tool) Execute(ctx context.Context, action string, params *tool.Params, _ tool.Context) *envelope.Envelope {
	return t.client.Call(ctx, t.toolID, action, params.Raw())
}

// Ping probes the remote side for liveness, used by the health monitor.
func (t *Tool) Ping(ctx context.Context) bool {
	return t.client.Ping(ctx, t.toolID)
}
