package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/nodegraph/store"
)

// RedisCheckpointStore implements store.CheckpointStore using Redis
type RedisCheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	codec  *store.Codec
}

var _ store.CheckpointStore = (*RedisCheckpointStore)(nil)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "nodegraph:"
	TTL      time.Duration // Expiration for checkpoints, default 0 (no expiration)
	Codec    *store.Codec
}

// NewRedisCheckpointStore creates a new Redis checkpoint store
func NewRedisCheckpointStore(opts RedisOptions) *RedisCheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisCheckpointStoreWithClient(client, opts)
}

// NewRedisCheckpointStoreWithClient uses an existing client. Connection fields of opts are ignored.
func NewRedisCheckpointStoreWithClient(client *redis.Client, opts RedisOptions) *RedisCheckpointStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "nodegraph:"
	}
	codec := opts.Codec
	if codec == nil {
		codec = store.NewCodec(nil)
	}

	return &RedisCheckpointStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
		codec:  codec,
	}
}

// globEscaper quotes the characters SCAN MATCH treats as pattern syntax.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func (s *RedisCheckpointStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

// Ping checks the connection.
func (s *RedisCheckpointStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *RedisCheckpointStore) Close() error {
	return s.client.Close()
}

// Save stores a checkpoint
func (s *RedisCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ThreadID == "" {
		return fmt.Errorf("checkpoint has no thread id")
	}

	data, err := s.codec.MarshalCheckpoint(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, s.threadKey(checkpoint.ThreadID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint of a thread
func (s *RedisCheckpointStore) Load(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.threadKey(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrCheckpointNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	return s.codec.UnmarshalCheckpoint(data)
}

// List returns the sorted ids of all stored threads
func (s *RedisCheckpointStore) List(ctx context.Context) ([]string, error) {
	keyPrefix := s.threadKey("")
	ids := []string{}

	iter := s.client.Scan(ctx, 0, globEscaper.Replace(keyPrefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Delete removes the checkpoint of a thread
func (s *RedisCheckpointStore) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, s.threadKey(threadID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes every checkpoint under the store's prefix.
func (s *RedisCheckpointStore) Clear(ctx context.Context) error {
	ids, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.threadKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}
