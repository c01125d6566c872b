// Package main implements the docevald dashboard daemon.
//
// docevald serves the evaluation dashboard and its JSON API, watches the
// report directory for changes, and relays live run progress over NATS
// when configured.
//
// Usage:
//
//	docevald [flags] [version]
//
// Flags:
//
//	-config string
//	      path to config file (default ./doceval.yaml)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/logging"
	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/server"
	"github.com/fyrsmithlabs/doceval/internal/telemetry"
)

var (
	// version information set via ldflags
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "Usage: docevald [flags] [version]\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("docevald by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is canceled or the server
// fails. It returns http.ErrServerClosed after a clean shutdown.
func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv, err := server.New(cfg.Server, deps.cache, deps.registry, deps.nc, logger.Underlying())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info(ctx, "starting docevald",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("output_dir", cfg.Paths.OutputDir),
		zap.String("version", version))

	return srv.Start(ctx)
}

// dependencies holds the daemon's long-lived resources in shutdown order.
type dependencies struct {
	tel      *telemetry.Telemetry
	nc       *nats.Conn
	cache    *server.Cache
	registry *progress.Registry
	logger   *logging.Logger
}

// Close releases resources: the report watcher first, then NATS, then
// the telemetry flush.
func (d *dependencies) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
	if d.nc != nil {
		d.nc.Close()
	}
	if d.tel != nil {
		if err := d.tel.Shutdown(context.Background()); err != nil {
			d.logger.Warn(context.Background(), "telemetry shutdown failed", zap.Error(err))
		}
	}
}

func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	deps := &dependencies{logger: logger}

	tel, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	deps.tel = tel

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			logger.Warn(ctx, "NATS connection failed, live progress disabled",
				zap.String("url", cfg.NATS.URL), zap.Error(err))
		} else {
			deps.nc = nc
		}
	}

	deps.registry = progress.NewRegistry(deps.nc, logger.Underlying())

	cache := server.NewCache(cfg.Paths.OutputDir, logger.Underlying())
	if err := cache.Load(); err != nil {
		logger.Warn(ctx, "initial report load failed", zap.Error(err))
	}
	if err := cache.Watch(); err != nil {
		logger.Warn(ctx, "report watcher unavailable", zap.Error(err))
	}
	deps.cache = cache

	return deps, nil
}
