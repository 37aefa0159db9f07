// Package health runs the periodic background probe over every
// external and remote tool, recording a health status per tool_id and
// exposing liveness queries.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/toolfabric/registry/pkg/tool"
	"github.com/toolfabric/registry/pkg/toolmeta"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusError     = "error"
	StatusUnknown   = "unknown"
)

// Record is a point-in-time health observation for one tool.
type Record struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists health records. The in-memory implementation is the
// default; a Redis-backed implementation is available for deployments
// that run more than one registry process sharing health state.
type Store interface {
	Set(toolID string, rec Record)
	Get(toolID string) (Record, bool)
	All() map[string]Record
}

// MemoryStore is the default Store, guarded by its own lock per the
// concurrency model's "health records live under their own lock" rule.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (s *MemoryStore) Set(toolID string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[toolID] = rec
}

func (s *MemoryStore) Get(toolID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[toolID]
	return rec, ok
}

func (s *MemoryStore) All() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Registry is the narrow slice of pkg/registry.Registry the monitor
// needs: enumerate non-local tools and fetch their backing.
type Registry interface {
	All(origin toolmeta.Origin) []*toolmeta.Metadata
	Get(id string) (tool.Tool, *toolmeta.Metadata, bool)
}

// Logger is the minimal logging surface the monitor needs.
type Logger interface {
	Printf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}

// Monitor runs the periodic probe loop. It is started and stopped
// explicitly; it never blocks request handlers.
type Monitor struct {
	registry Registry
	store    Store
	logger   Logger
	interval time.Duration

	cronRunner *cron.Cron
	probeTimeout time.Duration
}

// New builds a monitor. interval is how often the probe loop wakes;
// probeTimeout bounds each individual tool's health probe.
func New(registry Registry, store Store, logger Logger, interval, probeTimeout time.Duration) *Monitor {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if interval <= 0 {
		interval = 300 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Monitor{
		registry:     registry,
		store:        store,
		logger:       logger,
		interval:     interval,
		probeTimeout: probeTimeout,
	}
}

// Start begins the periodic probe loop using a cron schedule of
// "@every <interval>", giving clean start/stop semantics instead of a
// hand-rolled sleep loop.
func (m *Monitor) Start() {
	if m.cronRunner != nil {
		return
	}
	m.cronRunner = cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	_, err := m.cronRunner.AddFunc(spec, func() {
		m.checkAll(context.Background())
	})
	if err != nil {
		m.logger.Printf("health: failed to schedule probe loop: %v", err)
		m.cronRunner = nil
		return
	}
	m.cronRunner.Start()
	m.logger.Printf("health: probe loop started (interval=%s)", m.interval)
}

// Stop cancels the probe loop and waits for any in-flight run to
// finish, matching the registry's own shutdown sequence.
func (m *Monitor) Stop() {
	if m.cronRunner == nil {
		return
	}
	stopCtx := m.cronRunner.Stop()
	<-stopCtx.Done()
	m.cronRunner = nil
	m.logger.Printf("health: probe loop stopped")
}

func (m *Monitor) checkAll(ctx context.Context) {
	targets := append(m.registry.All(toolmeta.External), m.registry.All(toolmeta.Remote)...)
	for _, meta := range targets {
		m.checkOne(ctx, meta.ToolID)
	}
}

func (m *Monitor) checkOne(ctx context.Context, toolID string) {
	backing, _, ok := m.registry.Get(toolID)
	if !ok {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	rec := m.probe(probeCtx, backing)
	m.store.Set(toolID, rec)
	if rec.Status != StatusHealthy {
		m.logger.Printf("health: %s -> %s", toolID, rec.Status)
	}
}

func (m *Monitor) probe(ctx context.Context, backing tool.Tool) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			rec = Record{Status: StatusError, Message: fmt.Sprintf("%v", r), Timestamp: time.Now()}
		}
	}()

	if checker, ok := backing.(tool.HealthChecker); ok {
		hr := checker.HealthCheck(ctx)
		status := hr.Status
		if status == "" {
			status = StatusUnknown
		}
		return Record{Status: status, Message: hr.Message, Timestamp: time.Now()}
	}

	if pinger, ok := backing.(tool.Pinger); ok {
		if pinger.Ping(ctx) {
			return Record{Status: StatusHealthy, Timestamp: time.Now()}
		}
		return Record{Status: StatusUnhealthy, Timestamp: time.Now()}
	}

	return Record{Status: StatusUnknown, Timestamp: time.Now()}
}

// Status returns one record, or the whole map when toolID is empty.
func (m *Monitor) Status(toolID string) interface{} {
	if toolID == "" {
		return m.store.All()
	}
	if rec, ok := m.store.Get(toolID); ok {
		return rec
	}
	return Record{Status: StatusUnknown}
}

// IsHealthy is a convenience predicate over Status.
func (m *Monitor) IsHealthy(toolID string) bool {
	rec, ok := m.store.Get(toolID)
	return ok && rec.Status == StatusHealthy
}

// Unhealthy lists every tool_id whose last recorded status isn't
// healthy.
func (m *Monitor) Unhealthy() []string {
	var ids []string
	for id, rec := range m.store.All() {
		if rec.Status != StatusHealthy {
			ids = append(ids, id)
		}
	}
	return ids
}

// ProbeNow runs one check cycle immediately; used by tests and by the
// S6 health-transition scenario to avoid waiting a full interval.
func (m *Monitor) ProbeNow(ctx context.Context) {
	m.checkAll(ctx)
}
