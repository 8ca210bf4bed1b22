// Package app wires configuration into a running rental engine. Both binaries share it.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"motorent-backend/internal/cache"
	"motorent-backend/internal/config"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/pricing"
	"motorent-backend/internal/queue"
	"motorent-backend/internal/repository"
	"motorent-backend/internal/repository/memory"
	"motorent-backend/internal/repository/postgres"
	"motorent-backend/internal/service"
	"motorent-backend/internal/tracing"
)

// Store is what the engine and the jobs need from a storage backend.
type Store interface {
	repository.UnitOfWork
	repository.PoolRepository
	repository.BookingRepository
	repository.CommissionRepository
	Ping(ctx context.Context) error
}

type App struct {
	Config *config.Config
	Store  Store
	Engine service.RentalEngine
	Events service.EventPublisher

	closers []func(ctx context.Context) error
}

// Build connects every backend named in cfg. Optional backends (redis, rabbitmq) that are
// unconfigured or unreachable are replaced by their pass-through equivalents.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	if err := a.openStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	var pools repository.PoolRepository = a.Store
	if client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
		logger.Info("Pool cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.PoolCacheTTL())
		pools = cache.NewPoolCache(a.Store, client, cfg.PoolCacheTTL())
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	}

	a.Events = queue.Noop{}
	if cfg.RabbitMQ.URL != "" {
		pub, err := queue.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, lifecycle events will not be published", "error", err)
		} else {
			a.Events = pub
			a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		}
	}

	a.Engine = service.NewRentalEngine(service.Dependencies{
		UnitOfWork:  a.Store,
		Pools:       pools,
		Pricing:     pricing.NewCalculator(cfg.Location(), cfg.Rental.DepositDays),
		Bookings:    a.Store,
		Commissions: a.Store,
		Events:      a.Events,
	}, service.Config{
		Location:           cfg.Location(),
		ResolutionAttempts: cfg.Rental.ResolutionAttempts,
		TermsVersion:       cfg.Rental.TermsVersion,
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.Storage.Backend == "memory" {
		logger.Warn("Using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		if cfg.Storage.SeedFile != "" {
			fixture, err := memory.LoadFixture(cfg.Storage.SeedFile)
			if err != nil {
				return err
			}
			store.Seed(fixture)
			logger.Info("Seeded in-memory storage", "file", cfg.Storage.SeedFile,
				"vehicles", len(fixture.Vehicles), "pools", len(fixture.Pools))
		}
		a.Store = store
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")

	a.Store = postgres.NewStore(db)
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	return nil
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
