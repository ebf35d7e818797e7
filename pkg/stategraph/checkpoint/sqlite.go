package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite checkpoint store.
// The path should be a file path (e.g., "./checkpoints.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id     TEXT NOT NULL,
			checkpoint_id TEXT NOT NULL,
			parent_id     TEXT NOT NULL DEFAULT '',
			sequence      INTEGER NOT NULL,
			timestamp     TEXT NOT NULL,
			next_node     TEXT NOT NULL,
			state         BLOB NOT NULL,
			metadata      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (thread_id, checkpoint_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_seq
		ON checkpoints(thread_id, sequence)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements Store. A conflicting (thread_id, checkpoint_id) updates the
// row in place and keeps its original sequence slot.
func (s *SQLiteStore) Put(ctx context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	metadata := ""
	if len(cp.Metadata) > 0 {
		data, err := json.Marshal(cp.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, checkpoint_id, parent_id, sequence, timestamp, next_node, state, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, checkpoint_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			timestamp = excluded.timestamp,
			next_node = excluded.next_node,
			state     = excluded.state,
			metadata  = excluded.metadata
	`, cp.ThreadID, cp.ID, cp.ParentID, cp.Sequence,
		cp.Timestamp.UTC().Format(time.RFC3339Nano), cp.NextNode, []byte(cp.State), metadata)

	if err != nil {
		return fmt.Errorf("put checkpoint: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT checkpoint_id, parent_id, sequence, timestamp, next_node, state, metadata
		FROM checkpoints
		WHERE thread_id = ? AND checkpoint_id = ?
	`
	args := []any{threadID, checkpointID}
	if checkpointID == "" {
		query = `
			SELECT checkpoint_id, parent_id, sequence, timestamp, next_node, state, metadata
			FROM checkpoints
			WHERE thread_id = ?
			ORDER BY sequence DESC
			LIMIT 1
		`
		args = []any{threadID}
	}

	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx, query, args...), threadID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return cp, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT checkpoint_id, parent_id, sequence, timestamp, next_node, state, metadata
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY sequence
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	cps := make([]*Checkpoint, 0)
	for rows.Next() {
		cp, err := scanCheckpoint(rows, threadID)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cps = append(cps, cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	return cps, nil
}

// DeleteThread implements Store.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM checkpoints WHERE thread_id = ?
	`, threadID); err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanCheckpoint.
type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner, threadID string) (*Checkpoint, error) {
	var (
		cp        Checkpoint
		timestamp string
		state     []byte
		metadata  string
	)
	if err := row.Scan(&cp.ID, &cp.ParentID, &cp.Sequence, &timestamp, &cp.NextNode, &state, &metadata); err != nil {
		return nil, err
	}

	cp.Version = Version
	cp.ThreadID = threadID
	cp.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	cp.State = state
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &cp, nil
}
