// Package storage is the local persistence variant of the todo remote:
// an embedded SQLite database standing in for the backend when the app
// runs offline.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vodo/internal/store"
)

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS todos (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	audio_url TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	due TEXT DEFAULT NULL,
	created_at TEXT NOT NULL
);`
	_, err := s.db.Exec(ddl)
	return err
}

// List returns all tasks in creation order.
func (s *Store) List(ctx context.Context) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, completed, audio_url, email, due, created_at FROM todos ORDER BY created_at, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) Create(ctx context.Context, t store.Task) (store.Task, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, text, completed, audio_url, email, due, created_at) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		t.ID, t.Text, boolInt(t.Completed), t.AudioURL, t.Email, dueString(t.DueDate),
		t.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return store.Task{}, err
	}
	return t, nil
}

// Update applies the non-nil patch fields and returns the stored row.
func (s *Store) Update(ctx context.Context, id string, p store.Patch) (store.Task, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if p.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *p.Text)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolInt(*p.Completed))
	}
	if p.AudioURL != nil {
		sets = append(sets, "audio_url = ?")
		args = append(args, *p.AudioURL)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *p.Email)
	}
	if p.DueDate != nil {
		sets = append(sets, "due = ?")
		args = append(args, dueString(p.DueDate))
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := fmt.Sprintf("UPDATE todos SET %s WHERE id = ?;", strings.Join(sets, ", "))
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return store.Task{}, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return store.Task{}, store.ErrNotFound
		}
	}
	return s.get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?;`, id)
	return err
}

func (s *Store) get(ctx context.Context, id string) (store.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, completed, audio_url, email, due, created_at FROM todos WHERE id = ?;`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Task{}, store.ErrNotFound
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (store.Task, error) {
	var t store.Task
	var completed int
	var dueStr sql.NullString
	var createdStr string

	if err := sc.Scan(&t.ID, &t.Text, &completed, &t.AudioURL, &t.Email, &dueStr, &createdStr); err != nil {
		return store.Task{}, err
	}
	t.Completed = completed == 1
	if dueStr.Valid && dueStr.String != "" {
		if parsed, err := time.Parse(time.RFC3339, dueStr.String); err == nil {
			t.DueDate = &parsed
		}
	}
	if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
		t.CreatedAt = created
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dueString(due *time.Time) sql.NullString {
	if due == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: due.UTC().Format(time.RFC3339), Valid: true}
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
