package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/voyagen/xtreamrelay/internal/cache"
	"github.com/voyagen/xtreamrelay/internal/config"
	xlog "github.com/voyagen/xtreamrelay/internal/log"
	"github.com/voyagen/xtreamrelay/internal/relay"
	"github.com/voyagen/xtreamrelay/internal/server"
	"github.com/voyagen/xtreamrelay/internal/store"
	"github.com/voyagen/xtreamrelay/internal/xtream"
)

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel})
	logger := xlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Warn().Err(err).Msg("close session store")
		}
	}()
	logger.Info().Str("backend", cfg.SessionBackend).Dur("ttl", cfg.SessionTTL).Msg("session store ready")

	// Redis expires keys itself.
	if cfg.SessionBackend != config.BackendRedis && cfg.SessionTTL > 0 {
		sweeper, err := store.NewSweeper(sessions, cfg.SessionTTL, cfg.SweepSchedule)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	dial := relay.XtreamDialer(
		xtream.WithHTTPClient(xtream.NewHTTPClient()),
		xtream.WithUserAgent(cfg.UserAgent),
	)
	r := relay.New(sessions, dial, relay.WithSessionTTL(cfg.SessionTTL))

	if err := server.New(r, cfg).ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return store.NewMemory()
	case config.BackendRedis:
		rds, err := cache.New(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		if err := rds.Ping(ctx); err != nil {
			_ = rds.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return store.NewRedis(rds, cfg.SessionTTL), nil
	case config.BackendPostgres:
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.SessionBackend)
	}
}
