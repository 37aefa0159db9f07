// Package httpapi is the stateless HTTP translation layer: it
// parses requests, calls the registry, health monitor, or persistence
// layer for them, and serializes the resulting envelope with the
// matching HTTP status. It holds no business logic of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toolfabric/registry/internal/bootstrap"
	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/external"
	"github.com/toolfabric/registry/pkg/health"
	"github.com/toolfabric/registry/pkg/persistence"
	"github.com/toolfabric/registry/pkg/registry"
	"github.com/toolfabric/registry/pkg/remote"
	"github.com/toolfabric/registry/pkg/tool"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Server wires the registry core, health monitor, and credential
// registry into one HTTP handler.
type Server struct {
	Registry      *registry.Registry
	Health        *health.Monitor
	Credentials   *credential.Registry
	ConfigPath    string
	ActionTimeout time.Duration
	Logger        Logger

	requestsTotal *prometheus.CounterVec
}

// New builds a Server and its metrics collectors.
func New(reg *registry.Registry, hm *health.Monitor, creds *credential.Registry, configPath string, actionTimeout time.Duration, logger Logger) *Server {
	if actionTimeout <= 0 {
		actionTimeout = 30 * time.Second
	}
	s := &Server{
		Registry:      reg,
		Health:        hm,
		Credentials:   creds,
		ConfigPath:    configPath,
		ActionTimeout: actionTimeout,
		Logger:        logger,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_http_requests_total",
				Help: "Total HTTP requests served by the registry control surface.",
			},
			[]string{"route", "status"},
		),
	}
	if err := prometheus.Register(s.requestsTotal); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			s.requestsTotal = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return s
}

// Router builds the full HTTP route table.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /registry/ping", s.handlePing)
	mux.HandleFunc("GET /registry/tools", s.handleListTools)
	mux.HandleFunc("GET /registry/tool/{tool_id}", s.handleGetTool)
	mux.HandleFunc("DELETE /registry/tool/{tool_id}", s.handleDeregister)
	mux.HandleFunc("GET /registry/tool/{tool_id}/actions", s.handleListActions)
	mux.HandleFunc("GET /registry/tool/{tool_id}/action/{name}", s.handleGetAction)
	mux.HandleFunc("POST /registry/call/{tool_id}/{action}", s.handleCall)
	mux.HandleFunc("GET /registry/tool/{tool_id}/health", s.handleToolHealth)
	mux.HandleFunc("POST /registry/external/add", s.handleExternalAdd)
	mux.HandleFunc("POST /registry/remote/add", s.handleRemoteAdd)
	mux.HandleFunc("POST /registry/remote/sync", s.handleRemoteSync)
	mux.HandleFunc("GET /registry/capabilities", s.handleCapabilities)
	mux.HandleFunc("GET /registry/categories", s.handleCategories)
	mux.HandleFunc("GET /registry/export", s.handleExport)
	mux.HandleFunc("POST /registry/import", s.handleImport)
	mux.HandleFunc("GET /registry/health", s.handleHealthAll)
	mux.HandleFunc("POST /registry/handshake", s.handleHandshake)
	mux.HandleFunc("GET /registry/schema", s.handleSchema)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withCORS(s.withRequestID(mux))
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// withRequestID stamps every inbound call with a trace id, carried in
// the request context and echoed back in the response envelope's
// metadata so a caller can correlate a request with server-side logs.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) log(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Server) writeEnvelope(w http.ResponseWriter, r *http.Request, route string, env *envelope.Envelope) {
	status := env.Kind.HTTPStatus()
	if env.Success {
		status = http.StatusOK
	}
	s.requestsTotal.WithLabelValues(route, http.StatusText(status)).Inc()

	if traceID := requestIDFrom(r.Context()); traceID != "" {
		if env.Metadata == nil {
			env.Metadata = map[string]interface{}{}
		}
		env.Metadata["trace_id"] = traceID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.log("httpapi: failed to encode response for %s: %v", route, err)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, r, "ping", envelope.OkWithMetadata(map[string]interface{}{"status": "ok"}, map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}))
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := q.Get("origin")
	category := q.Get("category")
	capability := q.Get("capability")
	tag := q.Get("tag")

	var ids []string
	switch {
	case capability != "":
		ids = s.Registry.FindByCapabilities([]string{capability}, "any")
	case tag != "":
		ids = s.Registry.FindByTags([]string{tag}, "any")
	case category != "":
		ids = s.Registry.FindByCategory(category)
	default:
		var o toolmeta.Origin
		if origin != "" {
			parsed, err := toolmeta.ParseOrigin(origin)
			if err != nil {
				s.writeEnvelope(w, r, "tools.list", envelope.AsValidation("unknown origin: "+origin))
				return
			}
			o = parsed
		}
		for _, m := range s.originOrAll(o) {
			ids = append(ids, m.ToolID)
		}
	}

	summaries := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		meta, _, ok := s.Registry.Describe(id)
		if !ok {
			continue
		}
		summaries = append(summaries, map[string]interface{}{
			"tool_id":      meta.ToolID,
			"name":         meta.Name,
			"version":      meta.Version,
			"origin":       meta.Origin,
			"description":  meta.Description,
			"category":     meta.Category,
			"capabilities": meta.Capabilities,
		})
	}

	s.writeEnvelope(w, r, "tools.list", envelope.Ok(summaries))
}

func (s *Server) originOrAll(origin toolmeta.Origin) []*toolmeta.Metadata {
	if origin != "" {
		return s.Registry.All(origin)
	}
	var out []*toolmeta.Metadata
	out = append(out, s.Registry.All(toolmeta.Local)...)
	out = append(out, s.Registry.All(toolmeta.External)...)
	out = append(out, s.Registry.All(toolmeta.Remote)...)
	return out
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tool_id")
	meta, actions, ok := s.Registry.Describe(id)
	if !ok {
		s.writeEnvelope(w, r, "tool.get", envelope.AsNotFound("tool not found: "+id))
		return
	}
	s.writeEnvelope(w, r, "tool.get", envelope.Ok(map[string]interface{}{
		"metadata": meta,
		"actions":  actions,
	}))
}

func (s *Server) handleDeregister(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tool_id")
	env := s.Registry.Deregister(r.Context(), id)
	s.writeEnvelope(w, r, "tool.deregister", env)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tool_id")
	_, actions, ok := s.Registry.Describe(id)
	if !ok {
		s.writeEnvelope(w, r, "tool.actions", envelope.AsNotFound("tool not found: "+id))
		return
	}
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.Name)
	}
	s.writeEnvelope(w, r, "tool.actions", envelope.Ok(names))
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tool_id")
	name := r.PathValue("name")
	_, actions, ok := s.Registry.Describe(id)
	if !ok {
		s.writeEnvelope(w, r, "tool.action.schema", envelope.AsNotFound("tool not found: "+id))
		return
	}
	descriptor, ok := tool.ActionLookup(actions, name)
	if !ok {
		s.writeEnvelope(w, r, "tool.action.schema", envelope.AsNotFound("action not found: "+name))
		return
	}
	s.writeEnvelope(w, r, "tool.action.schema", envelope.Ok(descriptor))
}

type callRequest struct {
	Params  map[string]interface{} `json:"params"`
	Context struct {
		UserID string `json:"user_id"`
	} `json:"context"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tool_id")
	action := r.PathValue("action")

	var body callRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err.Error() != "EOF" {
			s.writeEnvelope(w, r, "tool.call", envelope.AsValidation("malformed request body: "+err.Error()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.ActionTimeout)
	defer cancel()

	params := tool.NewParams(body.Params)
	callCtx := tool.Context{UserID: body.Context.UserID}

	env := s.Registry.Dispatch(ctx, id, action, params, callCtx)
	s.writeEnvelope(w, r, "tool.call", env)
}

func (s *Server) handleToolHealth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tool_id")
	if _, _, ok := s.Registry.Get(id); !ok {
		s.writeEnvelope(w, r, "tool.health", envelope.AsNotFound("tool not found: "+id))
		return
	}
	s.writeEnvelope(w, r, "tool.health", envelope.Ok(s.Health.Status(id)))
}

type externalAddRequest struct {
	Name         string           `json:"name"`
	Config       external.Config  `json:"config"`
	Capabilities []string         `json:"capabilities"`
}

func (s *Server) handleExternalAdd(w http.ResponseWriter, r *http.Request) {
	var req externalAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeEnvelope(w, r, "external.add", envelope.AsValidation("malformed request body: "+err.Error()))
		return
	}
	if req.Config.Name == "" {
		req.Config.Name = req.Name
	}

	env := s.Registry.RegisterExternal(req.Config, req.Capabilities, func(cfg external.Config) (*external.Tool, error) {
		return external.New(cfg, s.Credentials, external.DefaultClient())
	})
	if env.Success {
		dir := external.ConfigDir(s.ConfigPath)
		if err := external.SaveConfig(dir, req.Config); err != nil {
			s.log("httpapi: failed to save external tool config for %s: %v", req.Config.Name, err)
		}
	}
	s.writeEnvelope(w, r, "external.add", env)
}

type remoteAddRequest struct {
	Name          string `json:"name"`
	RemoteURL     string `json:"remote_url"`
	AuthReference string `json:"auth_reference"`
}

func (s *Server) handleRemoteAdd(w http.ResponseWriter, r *http.Request) {
	var req remoteAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeEnvelope(w, r, "remote.add", envelope.AsValidation("malformed request body: "+err.Error()))
		return
	}

	client := remote.NewClient(req.RemoteURL, req.AuthReference, s.Credentials, external.DefaultClient())
	env := s.Registry.RegisterRemote(r.Context(), client, req.Name, req.AuthReference)
	s.writeEnvelope(w, r, "remote.add", env)
}

type remoteSyncRequest struct {
	RemoteURL     string `json:"remote_url"`
	AuthReference string `json:"auth_reference"`
}

func (s *Server) handleRemoteSync(w http.ResponseWriter, r *http.Request) {
	var req remoteSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeEnvelope(w, r, "remote.sync", envelope.AsValidation("malformed request body: "+err.Error()))
		return
	}

	client := remote.NewClient(req.RemoteURL, req.AuthReference, s.Credentials, external.DefaultClient())
	env := s.Registry.SyncRemote(r.Context(), client, req.AuthReference)
	s.writeEnvelope(w, r, "remote.sync", env)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, r, "capabilities", envelope.Ok(s.Registry.AllCapabilities()))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, r, "categories", envelope.Ok(s.Registry.AllCategories()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := persistence.Load(s.ConfigPath)
	if err != nil {
		s.writeEnvelope(w, r, "export", envelope.AsInternal("failed to load configuration: "+err.Error()))
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="registry_config.json"`)
	s.writeEnvelope(w, r, "export", envelope.Ok(doc))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		s.writeEnvelope(w, r, "import", envelope.AsValidation("invalid multipart form: "+err.Error()))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeEnvelope(w, r, "import", envelope.AsValidation("missing file field: "+err.Error()))
		return
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	var doc persistence.Document
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		s.writeEnvelope(w, r, "import", envelope.AsValidation("malformed configuration document: "+err.Error()))
		return
	}

	if err := persistence.Save(s.ConfigPath, doc); err != nil {
		s.writeEnvelope(w, r, "import", envelope.AsInternal("failed to persist configuration: "+err.Error()))
		return
	}

	bootstrap.Reload(r.Context(), s.Registry, s.Credentials, s.ConfigPath, doc, s.Logger)

	s.writeEnvelope(w, r, "import", envelope.Ok(map[string]interface{}{
		"local_tools":    len(doc.LocalTools),
		"external_tools": len(doc.ExternalTools),
		"remote_tools":   len(doc.RemoteTools),
	}))
}

func (s *Server) handleHealthAll(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, r, "health.all", envelope.Ok(s.Health.Status("")))
}

type handshakeRequest struct {
	Client  string `json:"client"`
	Version string `json:"version"`
}

func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	var req handshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeEnvelope(w, r, "handshake", envelope.AsValidation("malformed request body: "+err.Error()))
		return
	}
	s.writeEnvelope(w, r, "handshake", envelope.Ok(map[string]interface{}{
		"compatible": req.Version == "1",
		"server":     "toolfabric-registry",
	}))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	routes := []string{
		"GET /registry/ping",
		"GET /registry/tools",
		"GET /registry/tool/{tool_id}",
		"DELETE /registry/tool/{tool_id}",
		"GET /registry/tool/{tool_id}/actions",
		"GET /registry/tool/{tool_id}/action/{name}",
		"POST /registry/call/{tool_id}/{action}",
		"GET /registry/tool/{tool_id}/health",
		"POST /registry/external/add",
		"POST /registry/remote/add",
		"POST /registry/remote/sync",
		"GET /registry/capabilities",
		"GET /registry/categories",
		"GET /registry/export",
		"POST /registry/import",
		"GET /registry/health",
		"POST /registry/handshake",
		"GET /registry/schema",
	}
	s.writeEnvelope(w, r, "schema", envelope.Ok(routes))
}
