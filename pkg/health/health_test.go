package health

import (
	"context"
	"testing"

	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/tool"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

type fakeRegistry struct {
	metas   []*toolmeta.Metadata
	backing map[string]tool.Tool
}

func (r *fakeRegistry) All(origin toolmeta.Origin) []*toolmeta.Metadata {
	var out []*toolmeta.Metadata
	for _, m := range r.metas {
		if m.Origin == origin {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeRegistry) Get(id string) (tool.Tool, *toolmeta.Metadata, bool) {
	b, ok := r.backing[id]
	if !ok {
		return nil, nil, false
	}
	for _, m := range r.metas {
		if m.ToolID == id {
			return b, m, true
		}
	}
	return nil, nil, false
}

type pingTool struct {
	ok bool
}

func (p pingTool) Name() string                    { return "svc" }
func (p pingTool) Version() string                 { return "1.0.0" }
func (p pingTool) Description() string             { return "" }
func (p pingTool) Category() string                { return "general" }
func (p pingTool) Capabilities() []string           { return nil }
func (p pingTool) Actions() []tool.ActionDescriptor { return nil }
func (p pingTool) Execute(context.Context, string, *tool.Params, tool.Context) *envelope.Envelope {
	return envelope.Ok(nil)
}
func (p pingTool) Ping(context.Context) bool { return p.ok }

func TestProbeNowRecordsHealthyStatus(t *testing.T) {
	meta := toolmeta.New(toolmeta.External, "svc", "1.0.0")
	reg := &fakeRegistry{
		metas:   []*toolmeta.Metadata{meta},
		backing: map[string]tool.Tool{meta.ToolID: pingTool{ok: true}},
	}

	store := NewMemoryStore()
	m := New(reg, store, nil, 0, 0)
	m.ProbeNow(context.Background())

	if !m.IsHealthy(meta.ToolID) {
		t.Fatalf("expected %s to be healthy", meta.ToolID)
	}
}

func TestProbeNowRecordsUnhealthyStatus(t *testing.T) {
	meta := toolmeta.New(toolmeta.Remote, "svc", "1.0.0")
	reg := &fakeRegistry{
		metas:   []*toolmeta.Metadata{meta},
		backing: map[string]tool.Tool{meta.ToolID: pingTool{ok: false}},
	}

	store := NewMemoryStore()
	m := New(reg, store, nil, 0, 0)
	m.ProbeNow(context.Background())

	if m.IsHealthy(meta.ToolID) {
		t.Fatalf("expected %s to be unhealthy", meta.ToolID)
	}
	unhealthy := m.Unhealthy()
	if len(unhealthy) != 1 || unhealthy[0] != meta.ToolID {
		t.Fatalf("expected unhealthy list to contain %s, got %v", meta.ToolID, unhealthy)
	}
}

func TestUnknownToolReportsUnknownStatus(t *testing.T) {
	store := NewMemoryStore()
	m := New(&fakeRegistry{}, store, nil, 0, 0)
	rec, ok := m.Status("nope.missing.1.0.0").(Record)
	if !ok || rec.Status != StatusUnknown {
		t.Fatalf("expected unknown status, got %#v", m.Status("nope.missing.1.0.0"))
	}
}
