package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/villagehub/bizdir/internal/aisearch"
	"github.com/villagehub/bizdir/internal/analytics"
	"github.com/villagehub/bizdir/internal/config"
	"github.com/villagehub/bizdir/internal/database"
	"github.com/villagehub/bizdir/internal/device"
	"github.com/villagehub/bizdir/internal/directory"
	"github.com/villagehub/bizdir/internal/handler"
	"github.com/villagehub/bizdir/internal/presence"
	"github.com/villagehub/bizdir/internal/remote"
	"github.com/villagehub/bizdir/internal/remote/httpapi"
	remotepg "github.com/villagehub/bizdir/internal/remote/postgres"
	"github.com/villagehub/bizdir/internal/scheduler"
	"github.com/villagehub/bizdir/internal/server"
	"github.com/villagehub/bizdir/internal/store"
	syncpkg "github.com/villagehub/bizdir/internal/sync"
	"github.com/villagehub/bizdir/internal/track"
	"github.com/villagehub/bizdir/internal/worker"
)

const (
	cacheDBFile     = "bizdir.db"
	shutdownTimeout = 10 * time.Second
	workerCount     = 2
	workerQueueSize = 16
)

// noopActivity satisfies directory.Activity when presence tracking is off.
type noopActivity struct{}

func (noopActivity) Touch() {}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	initLogger(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("Failed to create data directory", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}

	devices, err := device.NewManager(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to load device identity", "error", err)
		os.Exit(1)
	}

	localStore, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, cacheDBFile))
	if err != nil {
		slog.Error("Failed to open local cache", "error", err)
		os.Exit(1)
	}
	defer localStore.Close()

	// Postgres is only dialed when something needs it: the postgres remote
	// mode, the analytics sink, or both.
	var dbPool *pgxpool.Pool
	if cfg.RemoteMode == "postgres" || cfg.AnalyticsEnabled {
		dbPool, err = database.NewPool(cfg.GetDBConnString(), 10, 5*time.Minute, 30*time.Minute)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
	}

	var remoteSvc remote.Service
	switch cfg.RemoteMode {
	case "postgres":
		remoteSvc = remotepg.NewService(dbPool)
	default:
		remoteSvc = httpapi.New(cfg.RemoteURL, cfg.RemoteAPIKey)
	}

	reconciler := syncpkg.New(localStore, remoteSvc)

	var analyticsSvc analytics.Service
	if cfg.AnalyticsEnabled {
		analyticsSvc = analytics.NewService(dbPool)
	}

	var sink track.Sink
	if analyticsSvc != nil {
		sink = analyticsSvc
	}
	tracker := track.NewTracker(sink, track.Config{
		Enabled:    analyticsSvc != nil,
		Threshold:  track.DefaultFlushThreshold,
		FlushDelay: track.DefaultFlushDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var activity directory.Activity = noopActivity{}
	var monitor *presence.Monitor
	if analyticsSvc != nil {
		monitor = presence.NewMonitor(analyticsSvc, devices.DeviceID(), presence.Config{
			Interval: presence.DefaultInterval,
			Recency:  presence.DefaultRecencyWindow,
		})
		monitor.Start(ctx)
		activity = monitor
	}

	searcher := aisearch.NewService(aisearch.Config{
		Model:     cfg.AIModel,
		APIKey:    cfg.AIAPIKey,
		CacheSize: aisearch.DefaultCacheSize,
		CacheTTL:  aisearch.DefaultCacheTTL,
	})

	directorySvc := directory.NewService(
		localStore,
		reconciler,
		remoteSvc,
		searcher,
		tracker,
		activity,
		devices.DeviceID(),
	)

	// Background refresh keeps the cache warm between user-driven loads
	pool := worker.NewPool(workerCount, workerQueueSize)
	pool.Start()
	sched := scheduler.New(pool)
	sched.Schedule(cfg.SyncInterval, worker.NewRefreshWorker(reconciler))

	handler.InitValidator()

	srv := server.NewServer(
		cfg.Port,
		cfg.APIKey,
		cfg.TrustedProxies,
		localStore,
		directorySvc,
		analyticsSvc,
		devices,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		slog.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	sched.Stop()
	pool.Stop()
	if monitor != nil {
		monitor.Stop()
	}
	tracker.Shutdown(shutdownCtx)

	slog.Info("Shutdown complete")
}
