package external

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// PoolConfig tunes the HTTP client shared by every external-tool call.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Timeout             time.Duration
}

// DefaultPoolConfig mirrors sane defaults for a service making many
// short-lived calls to a handful of external hosts.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		Timeout:             60 * time.Second,
	}
}

var (
	defaultPool     *http.Client
	defaultPoolOnce sync.Once
	poolMu          sync.Mutex
)

// NewClient builds an HTTP/2-enabled client from a (possibly partial)
// config, filling unset fields from DefaultPoolConfig.
func NewClient(cfg PoolConfig) *http.Client {
	d := DefaultPoolConfig()
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = d.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = d.IdleConnTimeout
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	_ = http2.ConfigureTransport(transport)

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// DefaultClient returns a lazily-constructed, process-wide HTTP client
// for external-tool calls that don't need a dedicated pool.
func DefaultClient() *http.Client {
	defaultPoolOnce.Do(func() {
		poolMu.Lock()
		defer poolMu.Unlock()
		defaultPool = NewClient(DefaultPoolConfig())
	})
	return defaultPool
}
