package registry

import (
	"context"
	"testing"

	"github.com/toolfabric/registry/internal/tools/echo"
	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/tool"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

func TestRegisterLocalAndDispatch(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()

	env := r.RegisterLocal(ctx, echo.New("1.0.0"), nil, nil)
	if !env.Success {
		t.Fatalf("registration failed: %s", env.Error)
	}

	id := toolmeta.ToolID(toolmeta.Local, "echo", "1.0.0")
	result := r.Dispatch(ctx, id, "say", tool.NewParams(map[string]interface{}{"text": "hi"}), tool.Context{})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	data, ok := result.Data.(map[string]string)
	if !ok || data["text"] != "hi" {
		t.Fatalf("unexpected dispatch result: %#v", result.Data)
	}
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()

	r.RegisterLocal(ctx, echo.New("1.0.0"), nil, nil)
	env := r.RegisterLocal(ctx, echo.New("1.0.0"), nil, nil)
	if env.Success || env.Kind != envelope.KindConflict {
		t.Fatalf("expected conflict, got %#v", env)
	}
}

func TestMissingRequiredParameterIsValidation(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()
	r.RegisterLocal(ctx, echo.New("1.0.0"), nil, nil)

	id := toolmeta.ToolID(toolmeta.Local, "echo", "1.0.0")
	result := r.Dispatch(ctx, id, "say", tool.NewParams(nil), tool.Context{})
	if result.Success || result.Kind != envelope.KindValidation {
		t.Fatalf("expected validation failure, got %#v", result)
	}
}

func TestUnknownActionIsNotFound(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()
	r.RegisterLocal(ctx, echo.New("1.0.0"), nil, nil)

	id := toolmeta.ToolID(toolmeta.Local, "echo", "1.0.0")
	result := r.Dispatch(ctx, id, "shout", tool.NewParams(nil), tool.Context{})
	if result.Success || result.Kind != envelope.KindNotFound {
		t.Fatalf("expected not_found, got %#v", result)
	}
}

func TestUnknownToolIsNotFound(t *testing.T) {
	r := New(nil, nil)
	result := r.Dispatch(context.Background(), "local.missing.1.0.0", "say", tool.NewParams(nil), tool.Context{})
	if result.Success || result.Kind != envelope.KindNotFound {
		t.Fatalf("expected not_found, got %#v", result)
	}
}

func TestFindByCapabilitiesPreservesInsertionOrder(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()

	r.RegisterLocal(ctx, fakeTool{name: "one", capabilities: []string{"a", "b"}}, nil, nil)
	r.RegisterLocal(ctx, fakeTool{name: "two", capabilities: []string{"b"}}, nil, nil)
	r.RegisterLocal(ctx, fakeTool{name: "three", capabilities: []string{"c"}}, nil, nil)

	ids := r.FindByCapabilities([]string{"b"}, "any")
	if len(ids) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(ids), ids)
	}
	if ids[0] != toolmeta.ToolID(toolmeta.Local, "one", "1.0.0") {
		t.Fatalf("expected registration-order first match, got %s", ids[0])
	}
}

func TestVersionsOfAscendingSemver(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()
	r.RegisterLocal(ctx, fakeTool{name: "thing", version: "1.2.0"}, nil, nil)
	r.RegisterLocal(ctx, fakeTool{name: "thing", version: "1.0.0"}, nil, nil)
	r.RegisterLocal(ctx, fakeTool{name: "thing", version: "1.10.0"}, nil, nil)

	versions := r.VersionsOf("thing", toolmeta.Local)
	want := []string{
		toolmeta.ToolID(toolmeta.Local, "thing", "1.0.0"),
		toolmeta.ToolID(toolmeta.Local, "thing", "1.2.0"),
		toolmeta.ToolID(toolmeta.Local, "thing", "1.10.0"),
	}
	if len(versions) != len(want) {
		t.Fatalf("got %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Fatalf("got %v, want %v", versions, want)
		}
	}

	if latest := r.Latest("thing", toolmeta.Local); latest != want[len(want)-1] {
		t.Fatalf("latest = %s, want %s", latest, want[len(want)-1])
	}
}

func TestDeregisterInvokesShutdown(t *testing.T) {
	r := New(nil, nil)
	ctx := context.Background()
	ft := &shutdownTrackingTool{fakeTool: fakeTool{name: "thing", version: "1.0.0"}}
	r.RegisterLocal(ctx, ft, nil, nil)

	id := toolmeta.ToolID(toolmeta.Local, "thing", "1.0.0")
	env := r.Deregister(ctx, id)
	if !env.Success {
		t.Fatalf("deregister failed: %s", env.Error)
	}
	if ft.shutdownCalls != 1 {
		t.Fatalf("expected exactly one shutdown call, got %d", ft.shutdownCalls)
	}

	if _, _, ok := r.Get(id); ok {
		t.Fatalf("expected tool to be gone after deregistration")
	}
}

type fakeTool struct {
	name         string
	version      string
	capabilities []string
}

func (f fakeTool) Name() string     { return f.name }
func (f fakeTool) Version() string {
	if f.version == "" {
		return "1.0.0"
	}
	return f.version
}
func (f fakeTool) Description() string    { return "" }
func (f fakeTool) Category() string       { return "general" }
func (f fakeTool) Capabilities() []string { return f.capabilities }
func (f fakeTool) Actions() []tool.ActionDescriptor {
	return []tool.ActionDescriptor{{Name: "noop"}}
}
func (f fakeTool) Execute(context.Context, string, *tool.Params, tool.Context) *envelope.Envelope {
	return envelope.Ok(nil)
}

type shutdownTrackingTool struct {
	fakeTool
	shutdownCalls int
}

func (s *shutdownTrackingTool) Shutdown(context.Context) error {
	s.shutdownCalls++
	return nil
}
