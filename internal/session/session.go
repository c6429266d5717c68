// Package session persists the field app's sign-in state in a local SQLite
// key-value file.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refresh_token"
	KeyEmail        = "email"
	KeyStudyID      = "study_id"
	KeySurveyID     = "survey_id"
)

var ErrNotFound = errors.New("session: key not found")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store is a key-value file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Session is the signed-in user.
type Session struct {
	Email        string
	AccessToken  string
	RefreshToken string
}

// Save stores the session in one transaction.
func (s *Store) Save(ctx context.Context, sess Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().UnixMilli()
	values := map[string]string{
		KeyEmail:        sess.Email,
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
	}
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, now); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return tx.Commit()
}

// Load returns the stored session, or ErrNotFound when nobody is signed in.
func (s *Store) Load(ctx context.Context) (Session, error) {
	token, err := s.Get(ctx, KeyAccessToken)
	if err != nil {
		return Session{}, err
	}
	sess := Session{AccessToken: token}
	if sess.RefreshToken, err = s.optional(ctx, KeyRefreshToken); err != nil {
		return Session{}, err
	}
	if sess.Email, err = s.optional(ctx, KeyEmail); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Store) optional(ctx context.Context, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Clear forgets the signed-in user.
func (s *Store) Clear(ctx context.Context) error {
	return s.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyEmail)
}
