// Package bootstrap re-establishes external and remote registrations
// from a persisted configuration document. It is the one load path
// shared by the daemon's startup sequence and the import endpoint, so
// the two behave identically: local tools always come from in-process
// discovery and are never re-registered from disk.
package bootstrap

import (
	"context"

	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/external"
	"github.com/toolfabric/registry/pkg/persistence"
	"github.com/toolfabric/registry/pkg/registry"
	"github.com/toolfabric/registry/pkg/remote"
)

// Logger is the minimal logging surface Reload needs.
type Logger interface {
	Printf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}

// Reload re-registers every external and remote tool named in doc
// against reg. A failure on one entry is logged and skipped rather
// than aborting the rest, matching the registry's degrade-and-continue
// behavior elsewhere.
func Reload(ctx context.Context, reg *registry.Registry, creds *credential.Registry, configPath string, doc persistence.Document, logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}

	dir := external.ConfigDir(configPath)
	for i := range doc.ExternalTools {
		meta := doc.ExternalTools[i]
		if _, _, ok := reg.Get(meta.ToolID); ok {
			continue
		}
		cfg, err := external.LoadConfigForName(dir, meta.Name)
		if err != nil {
			logger.Printf("reload: skipping external tool %s: %v", meta.Name, err)
			continue
		}
		cfg.Name = meta.Name
		cfg.Version = meta.Version
		if cfg.AuthRef == "" {
			cfg.AuthRef = meta.AuthReference
		}

		env := reg.RegisterExternal(cfg, meta.Capabilities, func(c external.Config) (*external.Tool, error) {
			return external.New(c, creds, external.DefaultClient())
		})
		if !env.Success {
			logger.Printf("reload: failed to register external tool %s: %s", meta.Name, env.Error)
			continue
		}
		if _, live, ok := reg.Get(meta.ToolID); ok {
			live.CreatedAt = meta.CreatedAt
			live.UpdatedAt = meta.UpdatedAt
		}
	}

	for i := range doc.RemoteTools {
		meta := doc.RemoteTools[i]
		if _, _, ok := reg.Get(meta.ToolID); ok {
			continue
		}
		client := remote.NewClient(meta.Endpoint, meta.AuthReference, creds, external.DefaultClient())
		env := reg.RegisterRemote(ctx, client, meta.Name, meta.AuthReference)
		if !env.Success {
			logger.Printf("reload: failed to register remote tool %s: %s", meta.Name, env.Error)
			continue
		}
		if _, live, ok := reg.Get(meta.ToolID); ok {
			live.CreatedAt = meta.CreatedAt
			live.UpdatedAt = meta.UpdatedAt
		}
	}
}
