package registry

import (
	"context"
	"fmt"

	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/external"
	"github.com/toolfabric/registry/pkg/remote"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

// RegisterExternal builds an adapter from a declarative config and
// registers it in the external partition.
func (r *Registry) RegisterExternal(cfg external.Config, capabilities []string, builder func(external.Config) (*external.Tool, error)) *envelope.Envelope {
	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}
	id := toolmeta.ToolID(toolmeta.External, cfg.Name, version)
	if _, _, ok := r.Get(id); ok {
		return envelope.AsConflict(fmt.Sprintf("tool already registered: %s", id))
	}

	adapter, err := builder(cfg)
	if err != nil {
		return envelope.AsValidation(fmt.Sprintf("building external tool %s: %v", cfg.Name, err))
	}

	meta := toolmeta.New(toolmeta.External, cfg.Name, version)
	meta.Description = cfg.Description
	meta.Category = firstNonEmpty(cfg.Category, "external")
	meta.Capabilities = capabilities
	meta.Endpoint = cfg.BaseURL
	meta.AuthReference = cfg.AuthRef

	return r.RegisterBacking(toolmeta.External, meta, adapter)
}

// RegisterRemote performs the handshake+metadata fetch and
// registers the resulting proxy in the remote partition.
func (r *Registry) RegisterRemote(ctx context.Context, client *remote.Client, name, authRef string) *envelope.Envelope {
	if err := client.Handshake(ctx, "toolfabric-registry", "1"); err != nil {
		return envelope.AsUpstream(fmt.Sprintf("handshake with %s failed: %v", client.BaseURL, err))
	}

	remoteMeta, err := client.GetToolMetadata(ctx, name)
	if err != nil {
		return envelope.AsTransport(fmt.Sprintf("fetching metadata for %s: %v", name, err))
	}

	version := remoteMeta.Version
	if version == "" {
		version = "1.0.0"
	}
	id := toolmeta.ToolID(toolmeta.Remote, name, version)
	if _, _, ok := r.Get(id); ok {
		return envelope.AsConflict(fmt.Sprintf("tool already registered: %s", id))
	}

	proxy := remote.New(client, id, remoteMeta)

	meta := toolmeta.New(toolmeta.Remote, name, version)
	meta.Description = remoteMeta.Description
	meta.Category = firstNonEmpty(remoteMeta.Category, "remote")
	meta.Capabilities = remoteMeta.Capabilities
	meta.Endpoint = client.BaseURL
	meta.AuthReference = authRef

	return r.RegisterBacking(toolmeta.Remote, meta, proxy)
}

// SyncRemote lists every tool advertised by a remote registry and
// registers each one not already present (matched by computed
// tool_id), returning the names that were newly registered. Already
// registered names are silently skipped, making repeated calls
// idempotent.
func (r *Registry) SyncRemote(ctx context.Context, client *remote.Client, authRef string) *envelope.Envelope {
	summaries, err := client.ListTools(ctx)
	if err != nil {
		return envelope.AsTransport(fmt.Sprintf("listing remote tools at %s: %v", client.BaseURL, err))
	}

	var registered []string
	for _, s := range summaries {
		version := s.Version
		if version == "" {
			version = "1.0.0"
		}
		id := toolmeta.ToolID(toolmeta.Remote, s.Name, version)
		if _, _, ok := r.Get(id); ok {
			continue
		}
		env := r.RegisterRemote(ctx, client, s.Name, authRef)
		if env.Success {
			registered = append(registered, s.Name)
		} else {
			r.logger.Printf("registry: sync_remote failed to register %s: %s", s.Name, env.Error)
		}
	}

	return envelope.Ok(map[string]interface{}{"registered": registered})
}
