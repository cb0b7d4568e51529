package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/nodegraph/store"
	_ "modernc.org/sqlite"
)

const (
	// DriverCgo is the mattn/go-sqlite3 driver.
	DriverCgo = "sqlite3"
	// DriverPure is the modernc.org/sqlite driver, usable without cgo.
	DriverPure = "sqlite"
)

// SqliteCheckpointStore implements store.CheckpointStore using SQLite
type SqliteCheckpointStore struct {
	db        *sql.DB
	tableName string
	codec     *store.Codec
}

var _ store.CheckpointStore = (*SqliteCheckpointStore)(nil)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "checkpoints"
	Driver    string // DriverCgo (default) or DriverPure
	Codec     *store.Codec
}

// NewSqliteCheckpointStore opens the database and creates the table if needed.
func NewSqliteCheckpointStore(opts SqliteOptions) (*SqliteCheckpointStore, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	driver := opts.Driver
	if driver == "" {
		driver = DriverCgo
	}
	if driver != DriverCgo && driver != DriverPure {
		return nil, fmt.Errorf("unsupported sqlite driver: %s", driver)
	}

	if opts.Path != ":memory:" {
		if dir := filepath.Dir(opts.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}
	codec := opts.Codec
	if codec == nil {
		codec = store.NewCodec(nil)
	}

	s := &SqliteCheckpointStore{
		db:        db,
		tableName: tableName,
		codec:     codec,
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			pending_node TEXT NOT NULL,
			step INTEGER NOT NULL,
			version INTEGER NOT NULL,
			state TEXT NOT NULL,
			interrupt_value TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteCheckpointStore) Close() error {
	return s.db.Close()
}

// Save stores a checkpoint
func (s *SqliteCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ThreadID == "" {
		return fmt.Errorf("checkpoint has no thread id")
	}

	stateJSON, err := s.codec.MarshalState(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var interruptJSON sql.NullString
	if checkpoint.InterruptValue != nil {
		data, err := s.codec.MarshalValue(checkpoint.InterruptValue)
		if err != nil {
			return fmt.Errorf("failed to marshal interrupt value: %w", err)
		}
		interruptJSON = sql.NullString{String: string(data), Valid: true}
	}

	metadataJSON, err := sonic.Marshal(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, pending_node, step, version, state, interrupt_value, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			pending_node = excluded.pending_node,
			step = excluded.step,
			version = excluded.version,
			state = excluded.state,
			interrupt_value = excluded.interrupt_value,
			metadata = excluded.metadata,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ThreadID,
		checkpoint.PendingNode,
		checkpoint.Step,
		checkpoint.Version,
		string(stateJSON),
		interruptJSON,
		string(metadataJSON),
		checkpoint.CreatedAt.UTC().Format(time.RFC3339Nano),
		checkpoint.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// Load retrieves the checkpoint of a thread
func (s *SqliteCheckpointStore) Load(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, pending_node, step, version, state, interrupt_value, metadata, created_at, updated_at
		FROM %s
		WHERE thread_id = ?
	`, s.tableName)

	var (
		cp                   store.Checkpoint
		stateJSON            string
		interruptJSON        sql.NullString
		metadataJSON         sql.NullString
		createdAt, updatedAt string
	)

	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&cp.ThreadID,
		&cp.PendingNode,
		&cp.Step,
		&cp.Version,
		&stateJSON,
		&interruptJSON,
		&metadataJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrCheckpointNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if cp.State, err = s.codec.UnmarshalState([]byte(stateJSON)); err != nil {
		return nil, err
	}
	if interruptJSON.Valid {
		if cp.InterruptValue, err = s.codec.UnmarshalValue([]byte(interruptJSON.String)); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interrupt value: %w", err)
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := sonic.UnmarshalString(metadataJSON.String, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if cp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if cp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &cp, nil
}

// List returns the sorted ids of all stored threads
func (s *SqliteCheckpointStore) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT thread_id FROM %s ORDER BY thread_id ASC", s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
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
func (s *SqliteCheckpointStore) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
