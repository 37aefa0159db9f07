// Package external builds synthetic tools from a declarative REST/GraphQL
// configuration document: a base URL, default headers, an auth
// reference, and a per-action HTTP recipe (verb, path template,
// parameter placement, timeout, response projection).
package external

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParamPlacement says where a declared parameter is substituted into
// the outbound HTTP call.
type ParamPlacement string

const (
	InPath  ParamPlacement = "path"
	InQuery ParamPlacement = "query"
	InBody  ParamPlacement = "body"
	InForm  ParamPlacement = "form"
)

// Projection selects what part of a JSON response becomes the action's
// result data. An empty pointer means "the whole body".
type Projection struct {
	JSONPointer string `json:"json_pointer,omitempty" yaml:"json_pointer,omitempty"`
}

// ParamSpec declares one parameter an action recipe accepts.
type ParamSpec struct {
	Name      string         `json:"name" yaml:"name"`
	Placement ParamPlacement `json:"in" yaml:"in"`
	Required  bool           `json:"required" yaml:"required"`
}

// ActionRecipe is the routing recipe for one action of an external
// tool: how to build the HTTP request and how to read the response.
type ActionRecipe struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Method      string            `json:"method" yaml:"method"`
	PathTemplate string           `json:"path" yaml:"path"`
	Params      []ParamSpec       `json:"params" yaml:"params"`
	Timeout     time.Duration     `json:"timeout" yaml:"timeout"`
	Projection  Projection        `json:"projection" yaml:"projection"`
}

// Config is the declarative document register_external hands to
// this package to build a tool.
type Config struct {
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Description string            `json:"description" yaml:"description"`
	Category    string            `json:"category" yaml:"category"`
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	AuthRef     string            `json:"auth" yaml:"auth"`
	Actions     []ActionRecipe    `json:"actions" yaml:"actions"`
	HealthPath  string            `json:"health_path" yaml:"health_path"`
}

// LoadConfig parses a config document, choosing JSON or YAML by file
// extension. The canonical persisted registry document always uses
// JSON; this accepts YAML-authored recipe documents as an additive
// authoring convenience.
func LoadConfig(filename string, data []byte) (Config, error) {
	var cfg Config
	var err error
	if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing external tool config %s: %w", filename, err)
	}
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("external tool config %s: base_url is required", filename)
	}
	return cfg, nil
}

// ConfigDir is where a per-tool config document for each registered
// external tool is kept, alongside the main registry document. The
// registry document's own tool_id record never carries the base URL,
// headers, or action recipes, so re-registering an external tool on
// restart or import means reading its document back from here.
func ConfigDir(registryConfigPath string) string {
	return filepath.Join(filepath.Dir(registryConfigPath), "external-tools")
}

// SaveConfig writes cfg as the canonical per-tool document for its name
// in dir, always as JSON so it round-trips through the same LoadConfig
// path regardless of how the tool was originally registered.
func SaveConfig(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating external tool config dir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling external tool config %s: %w", cfg.Name, err)
	}
	path := filepath.Join(dir, cfg.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing external tool config %s: %w", path, err)
	}
	return nil
}

// LoadConfigForName finds and parses the per-tool document for name in
// dir, trying the canonical .json extension and then .yaml/.yml as an
// authoring convenience.
func LoadConfigForName(dir, name string) (Config, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("reading external tool config %s: %w", path, err)
		}
		return LoadConfig(path, data)
	}
	return Config{}, fmt.Errorf("no config document found for external tool %q in %s", name, dir)
}
