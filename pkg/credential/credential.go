// Package credential resolves an opaque auth_reference to an outbound
// Authorization header at call time. The registry never holds resolved
// credentials; only a Provider does, and only for as long as a token
// stays valid.
package credential

import (
	"context"
	"fmt"
	"sync"
)

// Provider resolves an auth_reference to a header value. Implementations
// are responsible for caching and refreshing whatever they hold;
// Resolve must be safe for concurrent use.
type Provider interface {
	Resolve(ctx context.Context, authReference string) (header string, err error)
}

// Registry is a keyed set of providers, one per exact auth_reference
// (no prefix matching), letting the external/remote adapters resolve
// credentials without knowing which provider backs a given reference.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty credential registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register associates an auth_reference with the provider that resolves
// it.
func (r *Registry) Register(authReference string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[authReference] = p
}

// Resolve looks up the provider for authReference and resolves it. An
// empty authReference resolves to an empty header with no error: not
// every tool requires credentials.
func (r *Registry) Resolve(ctx context.Context, authReference string) (string, error) {
	if authReference == "" {
		return "", nil
	}
	r.mu.RLock()
	p, ok := r.providers[authReference]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no credential provider registered for reference %q", authReference)
	}
	return p.Resolve(ctx, authReference)
}
