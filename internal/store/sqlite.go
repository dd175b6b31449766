package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/profile-memory/internal/model"
)

const backendSQLite = "sqlite"

// SQLiteStore implements Store using SQLite. Several subjects may share one
// database file; every statement is scoped by subject_id.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	subject string
	ids     *idSource
}

// NewSQLiteStore opens or creates a SQLite database at the given path and
// returns a handle scoped to subject.
func NewSQLiteStore(dbPath, subject string) (*SQLiteStore, error) {
	if err := model.ValidateSubject(subject); err != nil {
		return nil, err
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.StorageError{Op: model.OpWrite, Path: dbPath, Err: fmt.Errorf("create db dir: %w", err)}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &model.StorageError{Op: model.OpRead, Path: dbPath, Err: fmt.Errorf("open db: %w", err)}
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		subject: subject,
		ids:     newIDSource(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &model.StorageError{Op: model.OpWrite, Path: dbPath, Err: fmt.Errorf("migrate: %w", err)}
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT NOT NULL UNIQUE,
		subject_id  TEXT NOT NULL,
		content     TEXT NOT NULL,
		category    TEXT NOT NULL,
		importance  TEXT NOT NULL DEFAULT 'medium',
		tags        TEXT NOT NULL DEFAULT '[]',
		kind        TEXT NOT NULL DEFAULT 'user',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_subject ON memories(subject_id, seq);
	CREATE INDEX IF NOT EXISTS idx_memories_subject_category ON memories(subject_id, category);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Subject() string { return s.subject }
func (s *SQLiteStore) Path() string    { return s.path }

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.Memory, error) {
	now := time.Now().UTC()
	mem, err := newRecord(s.subject, s.ids.next(now), now, p)
	if err != nil {
		return nil, err
	}

	tagsJSON, err := json.Marshal(mem.Tags)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, subject_id, content, category, importance, tags, kind, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mem.ID, mem.SubjectID, mem.Content, string(mem.Category), string(mem.Importance),
		string(tagsJSON), string(mem.Kind), formatTime(mem.CreatedAt), formatTime(mem.UpdatedAt))
	observe(backendSQLite, "put", err)
	if err != nil {
		return nil, s.writeErr(fmt.Errorf("insert memory: %w", err))
	}
	return &mem, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, content, category, importance, tags, kind, created_at, updated_at
		 FROM memories WHERE subject_id = ? ORDER BY seq`, s.subject)
	if err != nil {
		observe(backendSQLite, "list", err)
		return nil, s.readErr(err)
	}
	defer rows.Close()

	memories := []model.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			observe(backendSQLite, "list", err)
			return nil, s.readErr(err)
		}
		memories = append(memories, m)
	}
	err = rows.Err()
	observe(backendSQLite, "list", err)
	if err != nil {
		return nil, s.readErr(err)
	}
	return memories, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject_id, content, category, importance, tags, kind, created_at, updated_at
		 FROM memories WHERE subject_id = ? AND id = ?`, s.subject, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		observe(backendSQLite, "get", nil)
		return nil, model.NotFoundError{ID: id}
	}
	observe(backendSQLite, "get", err)
	if err != nil {
		return nil, s.readErr(err)
	}
	return &m, nil
}

func (s *SQLiteStore) UpdateImportance(ctx context.Context, id string, importance model.Importance) (*model.Memory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		observe(backendSQLite, "update", err)
		return nil, s.writeErr(err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, subject_id, content, category, importance, tags, kind, created_at, updated_at
		 FROM memories WHERE subject_id = ? AND id = ?`, s.subject, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.NotFoundError{ID: id}
		observe(backendSQLite, "update", err)
		return nil, err
	}
	if err != nil {
		observe(backendSQLite, "update", err)
		return nil, s.writeErr(err)
	}

	m.Importance = importance
	m.UpdatedAt = touch(m.UpdatedAt)
	_, err = tx.ExecContext(ctx,
		`UPDATE memories SET importance = ?, updated_at = ? WHERE subject_id = ? AND id = ?`,
		string(m.Importance), formatTime(m.UpdatedAt), s.subject, id)
	if err == nil {
		err = tx.Commit()
	}
	observe(backendSQLite, "update", err)
	if err != nil {
		return nil, s.writeErr(fmt.Errorf("update memory: %w", err))
	}
	return &m, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE subject_id = ?`, s.subject)
	observe(backendSQLite, "clear", err)
	if err != nil {
		return s.writeErr(err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE subject_id = ?`, s.subject).Scan(&n)
	if err != nil {
		return 0, s.readErr(err)
	}
	return n, nil
}

func (s *SQLiteStore) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM memories WHERE subject_id = ?`, s.subject)
	if err != nil {
		return nil, s.readErr(err)
	}
	defer rows.Close()

	var found []model.Memory
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, s.readErr(err)
		}
		found = append(found, model.Memory{Category: model.Category(c)})
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err)
	}
	return categoriesOf(found), nil
}

func (s *SQLiteStore) Tags(ctx context.Context) ([]string, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return tagsOf(records), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) readErr(err error) error {
	return &model.StorageError{Op: model.OpRead, Path: s.path, Err: err}
}

func (s *SQLiteStore) writeErr(err error) error {
	return &model.StorageError{Op: model.OpWrite, Path: s.path, Err: err}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var category, importance, kind, tagsJSON, createdAt, updatedAt string

	err := row.Scan(
		&m.ID, &m.SubjectID, &m.Content, &category, &importance,
		&tagsJSON, &kind, &createdAt, &updatedAt,
	)
	if err != nil {
		return m, err
	}

	m.Category = model.Category(category)
	m.Importance = model.Importance(importance)
	m.Kind = model.Kind(kind)
	if err := json.Unmarshal([]byte(tagsJSON), &m.Tags); err != nil {
		return m, fmt.Errorf("decode tags for %s: %w", m.ID, err)
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return m, err
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return m, err
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
