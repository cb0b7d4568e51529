// Package factory opens a checkpoint store from configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/smallnest/nodegraph/config"
	"github.com/smallnest/nodegraph/store"
	"github.com/smallnest/nodegraph/store/file"
	"github.com/smallnest/nodegraph/store/memory"
	"github.com/smallnest/nodegraph/store/postgres"
	"github.com/smallnest/nodegraph/store/redis"
	"github.com/smallnest/nodegraph/store/sqlite"
)

// Closer is implemented by the stores that hold connections.
type Closer func() error

// Open creates the store selected by cfg.Backend. An empty backend is
// inferred by cfg.ResolvedBackend.
//
// The returned Closer releases the store's resources and is never nil.
func Open(ctx context.Context, cfg *config.StoreConfig, codec *store.Codec) (store.CheckpointStore, Closer, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return memory.NewMemoryCheckpointStore(), noop, nil
	}
	if codec == nil {
		codec = store.NewCodec(nil)
	}

	switch backend := Backend(cfg); backend {
	case config.BackendMemory:
		return memory.NewMemoryCheckpointStore(), noop, nil

	case config.BackendFile:
		s, err := file.NewFileCheckpointStoreWithCodec(cfg.Path, codec)
		if err != nil {
			return nil, nil, fmt.Errorf("file: %w", err)
		}
		return s, noop, nil

	case config.BackendSqlite:
		s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{
			Path:      cfg.Path,
			TableName: cfg.Table,
			Driver:    cfg.Driver,
			Codec:     codec,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return s, s.Close, nil

	case config.BackendPostgres:
		s, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{
			ConnString: cfg.DSN,
			TableName:  cfg.Table,
			Codec:      codec,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := s.InitSchema(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil

	case config.BackendRedis:
		ttl, err := cfg.TTLDuration()
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		s := redis.NewRedisCheckpointStore(redis.RedisOptions{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
			TTL:      ttl,
			Codec:    codec,
		})
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Backend returns the backend Open would use for cfg.
func Backend(cfg *config.StoreConfig) string {
	return cfg.ResolvedBackend()
}
