package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallnest/nodegraph/config"
	"github.com/smallnest/nodegraph/store"
	"github.com/smallnest/nodegraph/store/file"
	"github.com/smallnest/nodegraph/store/memory"
	"github.com/smallnest/nodegraph/store/redis"
	"github.com/smallnest/nodegraph/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	tests := []struct {
		cfg  config.StoreConfig
		want string
	}{
		{config.StoreConfig{}, config.BackendMemory},
		{config.StoreConfig{Backend: config.BackendFile, Path: "x.db"}, config.BackendFile},
		{config.StoreConfig{DSN: "postgresql://localhost/db"}, config.BackendPostgres},
		{config.StoreConfig{Addr: "localhost:6379"}, config.BackendRedis},
		{config.StoreConfig{Path: "data/checkpoints.db"}, config.BackendSqlite},
		{config.StoreConfig{Path: "data/checkpoints"}, config.BackendFile},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backend(&tt.cfg), "%+v", tt.cfg)
	}
}

func roundTrip(t *testing.T, s store.CheckpointStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &store.Checkpoint{
		ThreadID:    "factory",
		State:       map[string]any{"value": "a"},
		PendingNode: "node_b",
	}))
	cp, err := s.Load(ctx, "factory")
	require.NoError(t, err)
	assert.Equal(t, "node_b", cp.PendingNode)
	assert.Equal(t, "a", cp.State["value"])
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		s, closeFn, err := Open(ctx, nil, nil)
		require.NoError(t, err)
		assert.IsType(t, &memory.MemoryCheckpointStore{}, s)
		assert.NoError(t, closeFn())
	})

	t.Run("file", func(t *testing.T) {
		s, closeFn, err := Open(ctx, &config.StoreConfig{Backend: config.BackendFile, Path: t.TempDir()}, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &file.FileCheckpointStore{}, s)
		roundTrip(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.StoreConfig{
			Path:   filepath.Join(t.TempDir(), "checkpoints.db"),
			Driver: sqlite.DriverPure,
		}
		s, closeFn, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &sqlite.SqliteCheckpointStore{}, s)
		roundTrip(t, s)
	})

	t.Run("redis", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		s, closeFn, err := Open(ctx, &config.StoreConfig{Addr: mr.Addr(), TTL: "1h"}, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &redis.RedisCheckpointStore{}, s)
		roundTrip(t, s)
	})

	t.Run("redis bad ttl", func(t *testing.T) {
		_, _, err := Open(ctx, &config.StoreConfig{Backend: config.BackendRedis, Addr: "localhost:1", TTL: "later"}, nil)
		assert.ErrorContains(t, err, "invalid ttl")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := Open(ctx, &config.StoreConfig{Backend: "etcd"}, nil)
		assert.ErrorContains(t, err, "unknown store backend")
	})
}
