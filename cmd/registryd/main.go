// Command registryd is the Tool Capability Registry and Invocation
// Fabric daemon: it loads configuration, discovers local tools,
// starts the health monitor, and serves the HTTP control surface
// until it receives a termination signal.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toolfabric/registry/internal/bootstrap"
	"github.com/toolfabric/registry/internal/config"
	"github.com/toolfabric/registry/internal/httpapi"
	"github.com/toolfabric/registry/internal/tools/echo"
	"github.com/toolfabric/registry/pkg/credential"
	"github.com/toolfabric/registry/pkg/health"
	"github.com/toolfabric/registry/pkg/persistence"
	"github.com/toolfabric/registry/pkg/registry"
)

const (
	exitOK          = 0
	exitStartup     = 1
	exitInvariant   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("registryd: configuration error: %v", err)
		return exitStartup
	}

	logger := log.New(os.Stderr, "registryd: ", log.LstdFlags)

	reg := registry.New(persistence.SaveFunc(cfg.ConfigPath), logger)

	// Local tools come from in-process discovery; the persisted
	// configuration's local_tools array is informational only and is
	// never re-registered from disk.
	ctx := context.Background()
	if env := reg.RegisterLocal(ctx, echo.New("1.0.0"), []string{"echo"}, nil); !env.Success {
		logger.Printf("startup: failed to register built-in tools: %s", env.Error)
		return exitStartup
	}

	creds := credential.NewRegistry()

	doc, err := persistence.Load(cfg.ConfigPath)
	if err != nil {
		logger.Printf("startup: failed to load persisted configuration: %v", err)
		return exitStartup
	}
	bootstrap.Reload(ctx, reg, creds, cfg.ConfigPath, doc, logger)

	if errs := reg.InitializeAll(ctx); len(errs) > 0 {
		for _, e := range errs {
			logger.Printf("startup: tool initialization error: %v", e)
		}
	}

	store, storeErr := buildHealthStore(cfg, logger)
	if storeErr != nil {
		logger.Printf("startup: %v", storeErr)
		return exitStartup
	}

	monitor := health.New(reg, store, logger, cfg.HealthInterval, cfg.HealthProbeTimeout)
	monitor.Start()

	server := httpapi.New(reg, monitor, creds, cfg.ConfigPath, cfg.ActionTimeout, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Printf("server error: %v", err)
			return exitStartup
		}
	case sig := <-sigCh:
		logger.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: http server: %v", err)
	}

	monitor.Stop()

	if errs := reg.ShutdownAll(shutdownCtx); len(errs) > 0 {
		for _, e := range errs {
			logger.Printf("shutdown: tool shutdown error: %v", e)
		}
		return exitInvariant
	}

	return exitOK
}

func buildHealthStore(cfg config.Config, logger *log.Logger) (health.Store, error) {
	if cfg.HealthRedisAddr == "" {
		return health.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.HealthRedisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := health.Ping(pingCtx, client); err != nil {
		return nil, fmt.Errorf("connecting to health redis at %s: %w", cfg.HealthRedisAddr, err)
	}
	logger.Printf("health: using redis-backed store at %s", cfg.HealthRedisAddr)
	return health.NewRedisStore(client, 2*cfg.HealthInterval), nil
}
