package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/nodegraph/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresCheckpointStore implements store.CheckpointStore using PostgreSQL
type PostgresCheckpointStore struct {
	pool      DBPool
	tableName string
	codec     *store.Codec
}

var _ store.CheckpointStore = (*PostgresCheckpointStore)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "checkpoints"
	Codec      *store.Codec
}

// NewPostgresCheckpointStore creates a new Postgres checkpoint store
func NewPostgresCheckpointStore(ctx context.Context, opts PostgresOptions) (*PostgresCheckpointStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewPostgresCheckpointStoreWithPool(pool, opts.TableName)
	if opts.Codec != nil {
		s.codec = opts.Codec
	}
	return s, nil
}

// NewPostgresCheckpointStoreWithPool creates a new Postgres checkpoint store with an existing pool
// Useful for testing with mocks
func NewPostgresCheckpointStoreWithPool(pool DBPool, tableName string) *PostgresCheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &PostgresCheckpointStore{
		pool:      pool,
		tableName: tableName,
		codec:     store.NewCodec(nil),
	}
}

// WithCodec replaces the codec used for state and interrupt values.
func (s *PostgresCheckpointStore) WithCodec(codec *store.Codec) *PostgresCheckpointStore {
	if codec != nil {
		s.codec = codec
	}
	return s
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			pending_node TEXT NOT NULL,
			step INTEGER NOT NULL,
			version INTEGER NOT NULL,
			state JSONB NOT NULL,
			interrupt_value JSONB,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_pending_node ON %s (pending_node);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresCheckpointStore) Close() {
	s.pool.Close()
}

// Save stores a checkpoint
func (s *PostgresCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ThreadID == "" {
		return fmt.Errorf("checkpoint has no thread id")
	}

	stateJSON, err := s.codec.MarshalState(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var interruptJSON []byte
	if checkpoint.InterruptValue != nil {
		if interruptJSON, err = s.codec.MarshalValue(checkpoint.InterruptValue); err != nil {
			return fmt.Errorf("failed to marshal interrupt value: %w", err)
		}
	}

	metadataJSON, err := sonic.Marshal(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, pending_node, step, version, state, interrupt_value, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (thread_id) DO UPDATE SET
			pending_node = EXCLUDED.pending_node,
			step = EXCLUDED.step,
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			interrupt_value = EXCLUDED.interrupt_value,
			metadata = EXCLUDED.metadata,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		checkpoint.ThreadID,
		checkpoint.PendingNode,
		checkpoint.Step,
		checkpoint.Version,
		stateJSON,
		interruptJSON,
		metadataJSON,
		checkpoint.CreatedAt,
		checkpoint.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// Load retrieves the checkpoint of a thread
func (s *PostgresCheckpointStore) Load(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, pending_node, step, version, state, interrupt_value, metadata, created_at, updated_at
		FROM %s
		WHERE thread_id = $1
	`, s.tableName)

	var cp store.Checkpoint
	var stateJSON, interruptJSON, metadataJSON []byte

	err := s.pool.QueryRow(ctx, query, threadID).Scan(
		&cp.ThreadID,
		&cp.PendingNode,
		&cp.Step,
		&cp.Version,
		&stateJSON,
		&interruptJSON,
		&metadataJSON,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrCheckpointNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if cp.State, err = s.codec.UnmarshalState(stateJSON); err != nil {
		return nil, err
	}
	if len(interruptJSON) > 0 {
		if cp.InterruptValue, err = s.codec.UnmarshalValue(interruptJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interrupt value: %w", err)
		}
	}
	if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
		if err := sonic.Unmarshal(metadataJSON, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &cp, nil
}

// List returns the sorted ids of all stored threads
func (s *PostgresCheckpointStore) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT thread_id FROM %s ORDER BY thread_id ASC", s.tableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}

	return ids, nil
}

// Delete removes the checkpoint of a thread
func (s *PostgresCheckpointStore) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// DeleteCompleted removes the checkpoints of all finished threads and reports how many were removed.
func (s *PostgresCheckpointStore) DeleteCompleted(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE pending_node = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, store.End)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed checkpoints: %w", err)
	}
	return tag.RowsAffected(), nil
}
