package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore 本地会话归档
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开或创建数据库；":memory:" 用于测试
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		goal        TEXT NOT NULL,
		status      TEXT NOT NULL,
		turn        INTEGER NOT NULL,
		started_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		data        BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);`)
	return err
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save 实现 Store
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	data, err := sess.Export()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO sessions (id, goal, status, turn, started_at, updated_at, data)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET status = excluded.status, turn = excluded.turn,
		updated_at = excluded.updated_at, data = excluded.data`,
		sess.ID, sess.Goal, string(sess.Status), sess.Turn,
		sess.StartedAt.UTC().Format(time.RFC3339Nano), sess.UpdatedAt.UTC().Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load 实现 Store
func (s *SQLiteStore) Load(ctx context.Context, id string) (*Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return Import(data)
}

// List 实现 Store
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM sessions ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		sess, err := Import(data)
		if err != nil {
			return nil, err
		}
		out = append(out, sess.Summary())
	}
	return out, rows.Err()
}

// Delete 实现 Store
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
