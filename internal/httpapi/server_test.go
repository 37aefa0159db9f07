package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/toolfabric/registry/internal/tools/echo"
	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/health"
	"github.com/toolfabric/registry/pkg/registry"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil, nil)
	hm := health.New(reg, health.NewMemoryStore(), nil, 0, 0)
	s := New(reg, hm, credential.NewRegistry(), t.TempDir()+"/registry.json", 0, nil)
	return s, reg
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope.Envelope {
	t.Helper()
	var env envelope.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v, body=%s", err, rr.Body.String())
	}
	return env
}

func TestPingReturnsSuccess(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/registry/ping", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatalf("expected success envelope, got %#v", env)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id response header")
	}
	if env.Metadata["trace_id"] != rr.Header().Get("X-Request-Id") {
		t.Fatalf("expected envelope trace_id to match response header")
	}
}

func TestCallDispatchesToRegisteredTool(t *testing.T) {
	s, reg := newTestServer(t)
	reg.RegisterLocal(context.Background(), echo.New("1.0.0"), nil, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"params": map[string]interface{}{"text": "hi"},
	})
	req := httptest.NewRequest(http.MethodPost, "/registry/call/local.echo.1.0.0/say", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatalf("expected success, got %#v", env)
	}
}

func TestCallMissingParamReturns400(t *testing.T) {
	s, reg := newTestServer(t)
	reg.RegisterLocal(context.Background(), echo.New("1.0.0"), nil, nil)

	body, _ := json.Marshal(map[string]interface{}{"params": map[string]interface{}{}})
	req := httptest.NewRequest(http.MethodPost, "/registry/call/local.echo.1.0.0/say", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetUnknownToolReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/registry/tool/local.missing.1.0.0", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeregisterRemovesTool(t *testing.T) {
	s, reg := newTestServer(t)
	reg.RegisterLocal(context.Background(), echo.New("1.0.0"), nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/registry/tool/local.echo.1.0.0", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, _, ok := reg.Get("local.echo.1.0.0"); ok {
		t.Fatalf("expected tool to be gone after deregistration")
	}
}

func TestListToolsReturnsRegisteredSummaries(t *testing.T) {
	s, reg := newTestServer(t)
	reg.RegisterLocal(context.Background(), echo.New("1.0.0"), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/registry/tools?origin=local", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatalf("expected success, got %#v", env)
	}
	list, ok := env.Data.([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("expected 1 tool summary, got %#v", env.Data)
	}
}

func TestCapabilitiesEndpointReturnsUnion(t *testing.T) {
	s, reg := newTestServer(t)
	reg.RegisterLocal(context.Background(), echo.New("1.0.0"), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/registry/capabilities", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	env := decodeEnvelope(t, rr)
	caps, ok := env.Data.([]interface{})
	if !ok || len(caps) != 1 || caps[0] != "echo" {
		t.Fatalf("expected [echo], got %#v", env.Data)
	}
}
