package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/internal/config"
	"github.com/meikuraledutech/workflow/memory"
	"github.com/meikuraledutech/workflow/postgres"
	"github.com/meikuraledutech/workflow/redis"
	"github.com/meikuraledutech/workflow/sqlite"
)

// openRepository connects the repository selected by cfg. The returned
// function releases it.
func openRepository(ctx context.Context, cfg config.Config) (workflow.Repository, func(), error) {
	switch cfg.Repository.Driver {
	case config.DriverRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis: connect %s: %w", cfg.Redis.Addr, err)
		}
		return s, func() { _ = s.Close() }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: connect: %w", err)
		}
		s := postgres.New(pool)
		if err := s.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres: schema: %w", err)
		}
		return s, pool.Close, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.DriverMemory:
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown repository driver %q", cfg.Repository.Driver)
}
