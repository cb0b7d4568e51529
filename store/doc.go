// Package store defines checkpoint persistence for nodegraph.
//
// A Checkpoint records, per thread, the state of a halted or completed run and
// the node it will continue from. Stores keep at most one checkpoint per thread:
// Save overwrites. Load reports a missing thread with an error wrapping
// ErrCheckpointNotFound.
//
// # Backends
//
//   - store/memory: in-process map, the default.
//   - store/file: one JSON file per thread.
//   - store/sqlite: SQLite through database/sql (mattn/go-sqlite3 or modernc.org/sqlite).
//   - store/postgres: PostgreSQL through pgx/v5.
//   - store/redis: Redis through go-redis/v9.
//
// store/factory opens one of them from configuration.
//
// # Serialization
//
// The JSON-based backends encode state through a Codec. Each value is stored
// with the name its Go type has in a TypeRegistry, so registered types come
// back exactly as they were saved:
//
//	registry := store.NewTypeRegistry()
//	_ = store.RegisterType[Decision](registry, "Decision")
//	s := redis.NewRedisCheckpointStore(redis.RedisOptions{Addr: addr, Codec: store.NewCodec(registry)})
//
// Unregistered types decode the way encoding/json decodes into an interface.
package store
