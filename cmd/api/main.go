package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/cache"
	"fishbot-economy-api/internal/config"
	"fishbot-economy-api/internal/economy"
	"fishbot-economy-api/internal/handler"
	"fishbot-economy-api/internal/logging"
	"fishbot-economy-api/internal/metrics"
	"fishbot-economy-api/internal/persistence"
	"fishbot-economy-api/internal/repository"
	"fishbot-economy-api/internal/router"
	"fishbot-economy-api/internal/service"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	log := logging.Component("main")

	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting fishbot economy api")

	store, err := openStore(cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("failed to open snapshot store")
	}
	log.WithField("type", cfg.Store.Type).Info("snapshot store initialized")

	repo, err := withBuffer(store, cfg.Cache)
	if err != nil {
		store.Close()
		log.WithError(err).Fatal("failed to initialize write-behind buffer")
	}

	engine, err := economy.New(economy.Options{
		DailyReward:  cfg.Economy.DailyReward,
		Cooldown:     cfg.Economy.DailyCooldown,
		SellPolicy:   economy.SellPricePolicy(cfg.Economy.SellPricePolicy),
		FlushTimeout: cfg.Economy.FlushTimeout,
		Observer:     metrics.EngineObserver{},
	}, persistence.NewGateway(repo))
	if err != nil {
		repo.Close()
		log.WithError(err).Fatal("invalid economy options")
	}

	initCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = engine.Init(initCtx)
	cancel()
	if err != nil {
		repo.Close()
		log.WithError(err).Fatal("failed to load economy state")
	}

	var checkpoints *service.CheckpointScheduler
	var checkpointRunner handler.CheckpointRunner
	if cfg.Checkpoint.Interval > 0 {
		checkpoints = service.NewCheckpointScheduler(engine, service.CheckpointConfig{
			Interval: cfg.Checkpoint.Interval,
			Timeout:  cfg.Checkpoint.Timeout,
		})
		if err := checkpoints.Start(); err != nil {
			log.WithError(err).Warn("checkpoint scheduler not started")
			checkpoints = nil
		} else {
			checkpointRunner = checkpoints
		}
	}

	if cfg.App.LoginKey == "" {
		log.Warn("LOGIN_KEY is empty, admin endpoints are disabled")
	}

	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Name, cfg.App.Version, repo),
		EconomyHandler: handler.NewEconomyHandler(engine),
		AdminHandler:   handler.NewAdminHandler(engine, repo, checkpointRunner, cfg.Store.Type),
		LoginKey:       cfg.App.LoginKey,
		Metrics:        metrics.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Server.Address()).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting commands before the final snapshot.
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	if checkpoints != nil {
		if err := checkpoints.Stop(); err != nil {
			log.WithError(err).Warn("checkpoint scheduler stop error")
		}
	}
	if err := engine.Shutdown(ctx); err != nil {
		log.WithError(err).Error("final snapshot failed")
	}
	// Closing a write-behind repository drains the buffer into the store.
	if err := repo.Close(); err != nil {
		log.WithError(err).Error("store close error")
	}

	log.Info("server stopped")
}

func openStore(cfg config.StoreConfig) (repository.SnapshotRepository, error) {
	switch cfg.Type {
	case "file":
		return repository.NewFileSnapshotRepository(cfg.Dir)
	case "sqlite":
		return repository.NewSQLiteSnapshotRepository(cfg.Path)
	case "postgres", "postgresql":
		return repository.NewPostgresSnapshotRepository(cfg.PostgresDSN())
	case "mysql":
		return repository.NewMySQLSnapshotRepository(cfg.MySQLDSN())
	case "memory":
		return repository.NewMemorySnapshotRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.Type)
	}
}

func withBuffer(store repository.SnapshotRepository, cfg config.CacheConfig) (repository.SnapshotRepository, error) {
	var buffer cache.Buffer
	switch cfg.Type {
	case "redis":
		rb, err := cache.NewRedisBuffer(cache.RedisBufferConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		buffer = rb
	case "memory":
		buffer = cache.NewMemoryBuffer()
	default:
		return store, nil
	}

	return cache.NewWriteBehindRepository(store, buffer, service.CreateFlushFunc(store), cache.WriteBehindConfig{
		Name:          cfg.Type,
		FlushInterval: cfg.FlushInterval,
	}), nil
}
