// Package tool defines the contract every registered tool satisfies:
// identity, capabilities, an action catalog, and a uniform invocation
// path. Parameter validation beyond "does the action exist and are its
// required parameters present" is the tool's own responsibility.
package tool

import (
	"context"

	"github.com/toolfabric/registry/pkg/envelope"
)

// ActionDescriptor is one entry in a tool's action catalog.
type ActionDescriptor struct {
	Name        string
	Description string
	Required    []string
	Optional    []string
}

// Context carries caller identity and an opaque metadata bag through
// dispatch. The registry never interprets Metadata beyond passing it
// through to the tool.
type Context struct {
	UserID   string
	Metadata map[string]interface{}
}

// WithUserID returns a Context with the given user id, preserving
// metadata.
func WithUserID(ctx Context, userID string) Context {
	ctx.UserID = userID
	return ctx
}

// Tool is the contract every local, external, or remote tool satisfies.
type Tool interface {
	Name() string
	Version() string
	Description() string
	Capabilities() []string
	Category() string
	Actions() []ActionDescriptor
	Execute(ctx context.Context, action string, params *Params, callCtx Context) *envelope.Envelope
}

// Initializer is an optional lifecycle hook. Idempotent.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Shutdowner is an optional lifecycle hook. Idempotent.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// HealthRecord describes the outcome of a health probe.
type HealthRecord struct {
	Status    string // healthy, unhealthy, error, unknown
	Message   string
	Timestamp int64
}

// HealthChecker is an optional self-probe hook. When a tool implements
// it, the health monitor prefers it over the adapter-level ping.
type HealthChecker interface {
	HealthCheck(ctx context.Context) HealthRecord
}

// Pinger is the adapter-level liveness probe external and remote tools
// fall back to when they don't implement HealthChecker: a bare
// reachability check with no structured status.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// ActionLookup finds a descriptor by name within a catalog, mirroring
// how the registry validates dispatch before invoking a tool.
func ActionLookup(actions []ActionDescriptor, name string) (ActionDescriptor, bool) {
	for _, a := range actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionDescriptor{}, false
}

// MissingRequired returns the names of required parameters absent from
// params, in declared order.
func MissingRequired(descriptor ActionDescriptor, params *Params) []string {
	var missing []string
	for _, name := range descriptor.Required {
		if !params.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
