package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/tool"
)

// Tool adapts a declarative Config into something that satisfies
// tool.Tool, so the registry can dispatch to it exactly like a local
// tool.
type Tool struct {
	cfg         Config
	client      *http.Client
	credentials *credential.Registry
	actions     map[string]ActionRecipe
}

// New builds an external tool from a config and a shared credential
// registry. Construction never performs I/O; it only validates the
// declarative shape.
func New(cfg Config, credentials *credential.Registry, client *http.Client) (*Tool, error) {
	if client == nil {
		client = DefaultClient()
	}
	actions := make(map[string]ActionRecipe, len(cfg.Actions))
	for _, a := range cfg.Actions {
		if a.Name == "" {
			return nil, fmt.Errorf("external tool %s: action missing name", cfg.Name)
		}
		actions[a.Name] = a
	}
	return &Tool{cfg: cfg, client: client, credentials: credentials, actions: actions}, nil
}

func (t *Tool) Name() string        { return t.cfg.Name }
func (t *Tool) Version() string     { return t.cfg.Version }
func (t *Tool) Description() string { return t.cfg.Description }
func (t *Tool) Category() string {
	if t.cfg.Category == "" {
		return "external"
	}
	return t.cfg.Category
}
func (t *Tool) Capabilities() []string { return nil }

// Actions returns the catalog derived from the config's action recipes,
// available at registration time for UI discovery.
func (t *Tool) Actions() []tool.ActionDescriptor {
	out := make([]tool.ActionDescriptor, 0, len(t.cfg.Actions))
	for _, a := range t.cfg.Actions {
		var required, optional []string
		for _, p := range a.Params {
			if p.Required {
				required = append(required, p.Name)
			} else {
				optional = append(optional, p.Name)
			}
		}
		out = append(out, tool.ActionDescriptor{
			Name:        a.Name,
			Description: a.Description,
			Required:    required,
			Optional:    optional,
		})
	}
	return out
}

// Execute substitutes parameters into the recipe, resolves credentials,
// performs the HTTP call with a bounded timeout, and projects the
// response into a C1 envelope.
func (t *Tool) Execute(ctx context.Context, action string, params *tool.Params, _ tool.Context) *envelope.Envelope {
	recipe, ok := t.actions[action]
	if !ok {
		return envelope.AsNotFound(fmt.Sprintf("unknown action: %s", action))
	}

	declared := map[string]ParamSpec{}
	for _, p := range recipe.Params {
		declared[p.Name] = p
	}
	for name := range params.Raw() {
		if _, ok := declared[name]; !ok {
			return envelope.AsValidation(fmt.Sprintf("unknown parameter: %s", name))
		}
	}

	pathParams := map[string]string{}
	queryParams := url.Values{}
	bodyParams := map[string]interface{}{}
	formParams := url.Values{}

	for _, p := range recipe.Params {
		raw, present := params.Raw()[p.Name]
		if !present {
			continue
		}
		switch p.Placement {
		case InPath:
			pathParams[p.Name] = fmt.Sprintf("%v", raw)
		case InQuery:
			queryParams.Set(p.Name, fmt.Sprintf("%v", raw))
		case InForm:
			formParams.Set(p.Name, fmt.Sprintf("%v", raw))
		default:
			bodyParams[p.Name] = raw
		}
	}

	path := recipe.PathTemplate
	for name, value := range pathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	fullURL := strings.TrimRight(t.cfg.BaseURL, "/") + path
	if len(queryParams) > 0 {
		fullURL += "?" + queryParams.Encode()
	}

	var bodyReader io.Reader
	contentType := ""
	if len(formParams) > 0 {
		bodyReader = strings.NewReader(formParams.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else if len(bodyParams) > 0 {
		payload, err := json.Marshal(bodyParams)
		if err != nil {
			return envelope.AsInternal("encoding request body: " + err.Error())
		}
		bodyReader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	timeout := recipe.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := recipe.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(callCtx, method, fullURL, bodyReader)
	if err != nil {
		return envelope.AsTransport("building request: " + err.Error())
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	if t.cfg.AuthRef != "" && t.credentials != nil {
		header, err := t.credentials.Resolve(ctx, t.cfg.AuthRef)
		if err != nil {
			return envelope.AsUnauthorized("resolving credential: " + err.Error())
		}
		if header != "" {
			req.Header.Set("Authorization", header)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if callCtx.Err() != nil {
			return envelope.AsTransport("deadline exceeded")
		}
		return envelope.AsTransport(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope.AsTransport("reading response: " + err.Error())
	}

	if resp.StatusCode >= 400 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return envelope.AsUpstream(fmt.Sprintf("upstream status %d: %s", resp.StatusCode, snippet))
	}

	data, err := project(body, recipe.Projection)
	if err != nil {
		return envelope.AsTransport("malformed upstream response: " + err.Error())
	}
	return envelope.Ok(data)
}

// Ping performs a GET to the configured health path, returning true on
// any 2xx response. Used by the health monitor when the tool has no
// self-describing HealthCheck. A missing health_path or a transport
// failure both report unhealthy rather than erroring the probe loop.
func (t *Tool) Ping(ctx context.Context) bool {
	if t.cfg.HealthPath == "" {
		return false
	}
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, strings.TrimRight(t.cfg.BaseURL, "/")+t.cfg.HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func project(body []byte, p Projection) (interface{}, error) {
	if p.JSONPointer == "" {
		var v interface{}
		if len(body) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return string(body), nil
		}
		return v, nil
	}
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, err
	}
	return resolvePointer(root, p.JSONPointer)
}

func resolvePointer(root interface{}, pointer string) (interface{}, error) {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return root, nil
	}
	cur := root
	for _, segment := range strings.Split(pointer, "/") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot resolve pointer segment %q", segment)
		}
		cur, ok = m[segment]
		if !ok {
			return nil, fmt.Errorf("pointer segment %q not found", segment)
		}
	}
	return cur, nil
}
