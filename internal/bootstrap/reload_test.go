package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/external"
	"github.com/toolfabric/registry/pkg/persistence"
	"github.com/toolfabric/registry/pkg/registry"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

func TestReloadReRegistersExternalToolFromSidecarConfig(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	}))
	defer upstream.Close()

	configPath := t.TempDir() + "/registry.json"
	cfg := external.Config{
		Name:    "weather",
		Version: "1.0.0",
		BaseURL: upstream.URL,
		Actions: []external.ActionRecipe{
			{Name: "lookup", Method: http.MethodGet, PathTemplate: "/lookup"},
		},
	}
	if err := external.SaveConfig(external.ConfigDir(configPath), cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	doc := persistence.Document{
		ExternalTools: []toolmeta.Metadata{
			{
				ToolID:       toolmeta.ToolID(toolmeta.External, "weather", "1.0.0"),
				Name:         "weather",
				Version:      "1.0.0",
				Origin:       toolmeta.External,
				Capabilities: []string{"weather"},
			},
		},
	}

	reg := registry.New(nil, nil)
	Reload(context.Background(), reg, credential.NewRegistry(), configPath, doc, nil)

	id := toolmeta.ToolID(toolmeta.External, "weather", "1.0.0")
	if _, _, ok := reg.Get(id); !ok {
		t.Fatalf("expected external tool %s to be re-registered", id)
	}
}

func TestReloadSkipsExternalToolWithoutSidecarConfig(t *testing.T) {
	configPath := t.TempDir() + "/registry.json"
	doc := persistence.Document{
		ExternalTools: []toolmeta.Metadata{
			{
				ToolID:  toolmeta.ToolID(toolmeta.External, "missing", "1.0.0"),
				Name:    "missing",
				Version: "1.0.0",
				Origin:  toolmeta.External,
			},
		},
	}

	reg := registry.New(nil, nil)
	Reload(context.Background(), reg, credential.NewRegistry(), configPath, doc, nil)

	id := toolmeta.ToolID(toolmeta.External, "missing", "1.0.0")
	if _, _, ok := reg.Get(id); ok {
		t.Fatalf("expected %s to stay unregistered without a sidecar config", id)
	}
}

func TestReloadReRegistersRemoteTool(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registry/handshake":
			json.NewEncoder(w).Encode(map[string]bool{"compatible": true})
		case "/registry/tool/weather":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":    "weather",
				"version": "1.0.0",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	configPath := t.TempDir() + "/registry.json"
	doc := persistence.Document{
		RemoteTools: []toolmeta.Metadata{
			{
				ToolID:   toolmeta.ToolID(toolmeta.Remote, "weather", "1.0.0"),
				Name:     "weather",
				Version:  "1.0.0",
				Origin:   toolmeta.Remote,
				Endpoint: upstream.URL,
			},
		},
	}

	reg := registry.New(nil, nil)
	Reload(context.Background(), reg, credential.NewRegistry(), configPath, doc, nil)

	id := toolmeta.ToolID(toolmeta.Remote, "weather", "1.0.0")
	if _, _, ok := reg.Get(id); !ok {
		t.Fatalf("expected remote tool %s to be re-registered", id)
	}
}

func TestReloadSkipsAlreadyRegisteredTool(t *testing.T) {
	configPath := t.TempDir() + "/registry.json"
	reg := registry.New(nil, nil)

	cfg := external.Config{Name: "weather", Version: "1.0.0", BaseURL: "http://example.invalid"}
	env := reg.RegisterExternal(cfg, nil, func(c external.Config) (*external.Tool, error) {
		return external.New(c, credential.NewRegistry(), external.DefaultClient())
	})
	if !env.Success {
		t.Fatalf("setup registration failed: %s", env.Error)
	}

	doc := persistence.Document{
		ExternalTools: []toolmeta.Metadata{
			{ToolID: toolmeta.ToolID(toolmeta.External, "weather", "1.0.0"), Name: "weather", Version: "1.0.0", Origin: toolmeta.External},
		},
	}

	// No sidecar config exists on disk; Reload must not attempt to
	// rebuild a tool that is already registered.
	Reload(context.Background(), reg, credential.NewRegistry(), configPath, doc, nil)

	if _, _, ok := reg.Get(toolmeta.ToolID(toolmeta.External, "weather", "1.0.0")); !ok {
		t.Fatalf("expected already-registered tool to remain registered")
	}
}
