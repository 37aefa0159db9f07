// Package registry is the in-memory authority over every registered
// tool: its metadata, its origin partition, and the indexes derived
// from that metadata. It is the only component that mutates registry
// state, and it serializes all mutations behind a single lock.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/semver"
	"github.com/toolfabric/registry/pkg/tool"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

// PersistFunc is how the registry saves its configuration after every
// mutation. It is injected rather than imported directly so pkg/registry
// never depends on a concrete persistence backend; cmd/registryd wires
// a real pkg/persistence.Save-backed implementation.
type PersistFunc func(doc Snapshot) error

// Snapshot is the three-array document handed to PersistFunc, matching
// the on-disk shape used by the export/import routes.
type Snapshot struct {
	LocalTools    []toolmeta.Metadata
	ExternalTools []toolmeta.Metadata
	RemoteTools   []toolmeta.Metadata
}

type entry struct {
	metadata *toolmeta.Metadata
	backing  tool.Tool
}

// Registry is the core of the fabric.
type Registry struct {
	mu sync.RWMutex

	entries map[string]*entry // tool_id -> entry

	byCapability map[string][]string // capability -> tool_ids, insertion order
	byCategory   map[string][]string
	byTag        map[string][]string

	persist PersistFunc
	logger  Logger
}

// Logger is the minimal logging surface the registry needs; satisfied
// by the standard library's *log.Logger.
type Logger interface {
	Printf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}

// New constructs an empty registry. Callers are expected to construct
// their own instance rather than reach for a package-level singleton;
// tests create isolated instances.
func New(persist PersistFunc, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		entries:      map[string]*entry{},
		byCapability: map[string][]string{},
		byCategory:   map[string][]string{},
		byTag:        map[string][]string{},
		persist:      persist,
		logger:       logger,
	}
}

// save persists the current registry contents. It acquires its own
// read lock, so callers must never hold r.mu when calling it.
func (r *Registry) save() {
	if r.persist == nil {
		return
	}
	r.mu.RLock()
	doc := r.snapshotLocked()
	r.mu.RUnlock()
	if err := r.persist(doc); err != nil {
		r.logger.Printf("registry: failed to save configuration: %v", err)
	}
}

func (r *Registry) snapshotLocked() Snapshot {
	var doc Snapshot
	for _, e := range r.entries {
		switch e.metadata.Origin {
		case toolmeta.Local:
			doc.LocalTools = append(doc.LocalTools, *e.metadata)
		case toolmeta.External:
			doc.ExternalTools = append(doc.ExternalTools, *e.metadata)
		case toolmeta.Remote:
			doc.RemoteTools = append(doc.RemoteTools, *e.metadata)
		}
	}
	return doc
}

func (r *Registry) indexInsertLocked(id string, m *toolmeta.Metadata) {
	for _, c := range m.Capabilities {
		r.byCapability[c] = append(r.byCapability[c], id)
	}
	r.byCategory[m.Category] = append(r.byCategory[m.Category], id)
	for _, t := range m.Tags {
		r.byTag[t] = append(r.byTag[t], id)
	}
}

func (r *Registry) indexRemoveLocked(id string, m *toolmeta.Metadata) {
	for _, c := range m.Capabilities {
		r.byCapability[c] = removeID(r.byCapability[c], id)
	}
	r.byCategory[m.Category] = removeID(r.byCategory[m.Category], id)
	for _, t := range m.Tags {
		r.byTag[t] = removeID(r.byTag[t], id)
	}
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// RegisterLocal registers an in-process tool. Initialize() is called,
// if present, before the tool becomes visible to dispatch; a failure
// there rolls the registration back.
func (r *Registry) RegisterLocal(ctx context.Context, t tool.Tool, capabilities, tags []string) *envelope.Envelope {
	id := toolmeta.ToolID(toolmeta.Local, t.Name(), t.Version())

	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return envelope.AsConflict(fmt.Sprintf("tool already registered: %s", id))
	}
	r.mu.Unlock()

	if initer, ok := t.(tool.Initializer); ok {
		if err := initer.Initialize(ctx); err != nil {
			return envelope.AsInternal(fmt.Sprintf("initializing tool %s: %v", id, err))
		}
	}

	meta := toolmeta.New(toolmeta.Local, t.Name(), t.Version())
	meta.Description = t.Description()
	meta.Category = firstNonEmpty(t.Category(), meta.Category)
	meta.Capabilities = append(t.Capabilities(), capabilities...)
	meta.Tags = tags

	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return envelope.AsConflict(fmt.Sprintf("tool already registered: %s", id))
	}
	r.entries[id] = &entry{metadata: meta, backing: t}
	r.indexInsertLocked(id, meta)
	r.mu.Unlock()

	r.save()
	r.logger.Printf("registry: registered local tool %s", id)
	return envelope.Ok(map[string]string{"tool_id": id})
}

// RegisterBacking registers an already-constructed external or remote
// backing (built by pkg/external or pkg/remote) under the given
// metadata. It exists so pkg/registry does not need to import the
// adapter packages directly, avoiding an import-direction tangle while
// keeping construction (C5/C6's job) out of the registry's hands.
func (r *Registry) RegisterBacking(origin toolmeta.Origin, meta *toolmeta.Metadata, backing tool.Tool) *envelope.Envelope {
	if origin == toolmeta.Local {
		return envelope.AsValidation("RegisterBacking does not accept local origin; use RegisterLocal")
	}
	id := meta.ToolID

	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return envelope.AsConflict(fmt.Sprintf("tool already registered: %s", id))
	}
	r.entries[id] = &entry{metadata: meta, backing: backing}
	r.indexInsertLocked(id, meta)
	r.mu.Unlock()

	r.save()
	r.logger.Printf("registry: registered %s tool %s", origin, id)
	return envelope.Ok(map[string]string{"tool_id": id})
}

// Deregister removes a tool_id from the registry, invoking Shutdown()
// for local tools that declare it.
func (r *Registry) Deregister(ctx context.Context, id string) *envelope.Envelope {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return envelope.AsNotFound(fmt.Sprintf("tool not found: %s", id))
	}
	delete(r.entries, id)
	r.indexRemoveLocked(id, e.metadata)
	r.mu.Unlock()

	if e.metadata.Origin == toolmeta.Local {
		if shutdowner, ok := e.backing.(tool.Shutdowner); ok {
			if err := shutdowner.Shutdown(ctx); err != nil {
				r.logger.Printf("registry: shutdown failed for %s: %v", id, err)
			}
		}
	}

	r.save()
	r.logger.Printf("registry: deregistered %s", id)
	return envelope.Ok(map[string]string{"tool_id": id})
}

// Get returns the backing and metadata for a tool_id, or nil if absent.
func (r *Registry) Get(id string) (tool.Tool, *toolmeta.Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil, false
	}
	return e.backing, e.metadata, true
}

// FindByName returns the tool_id of the highest-semver registration of
// name, optionally restricted to one origin. Callers wanting a specific
// version use the tool_id directly.
func (r *Registry) FindByName(name string, origin toolmeta.Origin) (string, bool) {
	versions := r.VersionsOf(name, origin)
	if len(versions) == 0 {
		return "", false
	}
	return versions[len(versions)-1], true
}

// VersionsOf returns every tool_id sharing name, across origins unless
// origin is non-empty, sorted ascending by semver.
func (r *Registry) VersionsOf(name string, origin toolmeta.Origin) []string {
	r.mu.RLock()
	var matches []*toolmeta.Metadata
	for _, e := range r.entries {
		if e.metadata.Name != name {
			continue
		}
		if origin != "" && e.metadata.Origin != origin {
			continue
		}
		matches = append(matches, e.metadata)
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return semver.Compare(matches[i].Version, matches[j].Version) < 0
	})
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ToolID
	}
	return ids
}

// Latest returns the highest-semver tool_id for name, or "" if none.
func (r *Registry) Latest(name string, origin toolmeta.Origin) string {
	versions := r.VersionsOf(name, origin)
	if len(versions) == 0 {
		return ""
	}
	return versions[len(versions)-1]
}

// FindByCapabilities returns tool_ids matching the given capabilities,
// in insertion order. mode "all" requires every capability present on
// the tool; "any" requires at least one.
func (r *Registry) FindByCapabilities(capabilities []string, mode string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchAllOrAny(r.entries, capabilities, mode, func(m *toolmeta.Metadata, c string) bool {
		return m.HasCapability(c)
	})
}

// FindByCategory returns tool_ids in category, in insertion order.
func (r *Registry) FindByCategory(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := append([]string(nil), r.byCategory[category]...)
	return ids
}

// FindByTags returns tool_ids matching the given tags, mode "all"/"any".
func (r *Registry) FindByTags(tags []string, mode string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchAllOrAny(r.entries, tags, mode, func(m *toolmeta.Metadata, t string) bool {
		return m.HasTag(t)
	})
}

func matchAllOrAny(entries map[string]*entry, labels []string, mode string, has func(*toolmeta.Metadata, string) bool) []string {
	var ids []string
	// Preserve registration order: we can't rely on map iteration order,
	// so order by CreatedAt instead, matching "insertion order" semantics.
	type scored struct {
		id      string
		created time.Time
	}
	var candidates []scored
	for id, e := range entries {
		matched := 0
		for _, l := range labels {
			if has(e.metadata, l) {
				matched++
			}
		}
		ok := false
		switch mode {
		case "all":
			ok = matched == len(labels)
		default:
			ok = matched > 0
		}
		if ok {
			candidates = append(candidates, scored{id, e.metadata.CreatedAt})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].created.Before(candidates[j].created) })
	for _, c := range candidates {
		ids = append(ids, c.id)
	}
	return ids
}

// Describe returns metadata plus the action catalog for a tool_id.
func (r *Registry) Describe(id string) (*toolmeta.Metadata, []tool.ActionDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil, false
	}
	return e.metadata, e.backing.Actions(), true
}

// AllCapabilities returns the union of every registered capability
// string.
func (r *Registry) AllCapabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byCapability))
	for c := range r.byCapability {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// AllCategories returns the union of every registered category.
func (r *Registry) AllCategories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byCategory))
	for c := range r.byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// All returns every metadata record, for listing endpoints.
func (r *Registry) All(origin toolmeta.Origin) []*toolmeta.Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*toolmeta.Metadata
	for _, e := range r.entries {
		if origin != "" && e.metadata.Origin != origin {
			continue
		}
		out = append(out, e.metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// InitializeAll calls Initialize() on every local tool that declares
// it, degrading and continuing past individual failures rather than
// stopping at the first one.
func (r *Registry) InitializeAll(ctx context.Context) []error {
	r.mu.RLock()
	var locals []*entry
	for _, e := range r.entries {
		if e.metadata.Origin == toolmeta.Local {
			locals = append(locals, e)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, e := range locals {
		if initer, ok := e.backing.(tool.Initializer); ok {
			if err := initer.Initialize(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.metadata.ToolID, err))
				r.logger.Printf("registry: initialize failed for %s: %v", e.metadata.ToolID, err)
			}
		}
	}
	return errs
}

// ShutdownAll calls Shutdown() on every local tool that declares it,
// degrading and continuing past individual failures.
func (r *Registry) ShutdownAll(ctx context.Context) []error {
	r.mu.RLock()
	var locals []*entry
	for _, e := range r.entries {
		if e.metadata.Origin == toolmeta.Local {
			locals = append(locals, e)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, e := range locals {
		if shutdowner, ok := e.backing.(tool.Shutdowner); ok {
			if err := shutdowner.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.metadata.ToolID, err))
				r.logger.Printf("registry: shutdown failed for %s: %v", e.metadata.ToolID, err)
			}
		}
	}
	return errs
}

// Dispatch is the uniform call path: resolve the tool, validate the
// action, its parameter names (snake_case only) and its required
// parameters, and delegate to the backing's
// Execute. Any panic from a backing is recovered and surfaced as an
// internal-kind envelope rather than crashing the caller's goroutine.
func (r *Registry) Dispatch(ctx context.Context, id, action string, params *tool.Params, callCtx tool.Context) (result *envelope.Envelope) {
	backing, _, ok := r.Get(id)
	if !ok {
		return envelope.AsNotFound(fmt.Sprintf("tool not found: %s", id))
	}

	descriptor, ok := tool.ActionLookup(backing.Actions(), action)
	if !ok {
		return envelope.AsNotFound(fmt.Sprintf("action not found: %s", action))
	}

	for name := range params.Raw() {
		if strings.ToLower(name) != name {
			return envelope.AsValidation(fmt.Sprintf("parameter names must be snake_case: %s", name))
		}
	}

	if missing := tool.MissingRequired(descriptor, params); len(missing) > 0 {
		return envelope.AsValidation(fmt.Sprintf("missing required parameter: %s", missing[0]))
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = envelope.AsInternal(fmt.Sprintf("%v", rec))
		}
	}()

	return backing.Execute(ctx, action, params, callCtx)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
