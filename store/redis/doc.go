// Package redis provides a Redis-backed checkpoint store built on go-redis/v9.
//
// A checkpoint is one string key, "<prefix>thread:<thread id>", holding the
// document written by store.Codec. The default prefix is "nodegraph:". A
// non-zero TTL is applied on every Save, so idle threads expire on their own.
//
// # Basic Usage
//
//	s := redis.NewRedisCheckpointStore(redis.RedisOptions{
//		Addr:   "localhost:6379",
//		Prefix: "myapp:",
//		TTL:    24 * time.Hour,
//	})
//	defer s.Close()
//
//	runner := graph.NewRunner(compiled, graph.RunnerConfig{Store: s})
//
// List walks the key space with SCAN rather than KEYS. Clear deletes every
// checkpoint under the prefix in a single pipeline.
package redis
