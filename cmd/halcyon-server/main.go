package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyonops/halcyon/internal/adapter"
	"github.com/halcyonops/halcyon/internal/adapter/prometheus"
	"github.com/halcyonops/halcyon/internal/adapter/synthetic"
	"github.com/halcyonops/halcyon/internal/api"
	"github.com/halcyonops/halcyon/internal/config"
	"github.com/halcyonops/halcyon/internal/logging"
	"github.com/halcyonops/halcyon/internal/metrics"
	"github.com/halcyonops/halcyon/internal/notify"
	"github.com/halcyonops/halcyon/internal/portfolio"
	"github.com/halcyonops/halcyon/internal/scheduler"
	"github.com/halcyonops/halcyon/internal/storage"
	"github.com/halcyonops/halcyon/internal/storage/postgres"
	"github.com/halcyonops/halcyon/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	logging.SetDefault(log)

	log.Info("starting halcyon server",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"adapter", cfg.Adapter.Provider,
		"manifests", cfg.Manifests.Dir)

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	source, err := buildSource(cfg)
	if err != nil {
		log.Error("failed to build SLI source", "error", err)
		os.Exit(1)
	}

	dispatcher := buildDispatcher(cfg, log)
	m := metrics.New()

	runner := portfolio.NewRunner(source, repo, dispatcher, m, log)
	if cfg.Adapter.Step > 0 {
		runner.Step = cfg.Adapter.Step
	}

	sched := scheduler.NewScheduler(runner, cfg.Manifests.Dir, cfg.Manifests.SchemaPath, cfg.Manifests.Interval, log)
	sched.SetRepository(repo)

	if err := sched.LoadManifests(ctx); err != nil {
		log.Error("failed to load manifests", "error", err)
		os.Exit(1)
	}

	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	apiServer := api.NewServer(sched, repo, m, log, addr)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- apiServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("received signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error("error shutting down server", "error", err)
		}

		sched.Stop()
		log.Info("shutdown complete")
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return postgres.NewStore(ctx, cfg.Storage.Postgres.DSN())
	default:
		return sqlite.NewStore(cfg.Storage.SQLite.Path)
	}
}

func buildSource(cfg *config.Config) (adapter.TimeSeriesSource, error) {
	switch cfg.Adapter.Provider {
	case "synthetic":
		a := synthetic.NewAdapter()
		if cfg.Adapter.Synthetic.FixtureDir != "" {
			if err := loadFixtures(a, cfg.Adapter.Synthetic.FixtureDir); err != nil {
				return nil, err
			}
		}
		return a, nil
	default:
		pc := prometheus.DefaultConfig(cfg.Adapter.Prometheus.URL)
		if cfg.Adapter.Prometheus.Timeout > 0 {
			pc.Timeout = cfg.Adapter.Prometheus.Timeout
		}
		if cfg.Adapter.Prometheus.MaxConcurrency > 0 {
			pc.MaxConcurrency = cfg.Adapter.Prometheus.MaxConcurrency
		}
		if cfg.Adapter.Prometheus.MaxRetries > 0 {
			pc.RetryCount = cfg.Adapter.Prometheus.MaxRetries
		}
		return prometheus.NewAdapter(pc), nil
	}
}

// loadFixtures registers every .json fixture in dir under its base name.
func loadFixtures(a *synthetic.Adapter, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fixture dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) < 6 || name[len(name)-5:] != ".json" {
			continue
		}
		if err := a.LoadFixture(name[:len(name)-5], dir+"/"+name); err != nil {
			return fmt.Errorf("load fixture %s: %w", name, err)
		}
	}
	return nil
}

func buildDispatcher(cfg *config.Config, log *slog.Logger) *notify.Dispatcher {
	var channels []notify.Channel
	if cfg.Notification.LogSink {
		channels = append(channels, notify.NewLogChannel(log))
	}
	for _, wh := range cfg.Notification.Webhooks {
		channels = append(channels, notify.NewWebhook(wh.Name, wh.URL, cfg.Notification.Timeout))
	}
	if len(channels) == 0 {
		return nil
	}
	return notify.NewDispatcher(channels, log)
}
