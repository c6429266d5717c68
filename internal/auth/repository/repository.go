// Package repository stores volunteer accounts and their token digests in
// Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type TokenKind string

const (
	TokenRefresh       TokenKind = "refresh"
	TokenPasswordReset TokenKind = "password_reset"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Token is a stored token digest. The raw value never reaches the database.
type Token struct {
	Digest    string
	UserID    uuid.UUID
	Kind      TokenKind
	ExpiresAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{Email: email, PasswordHash: passwordHash}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		email, passwordHash,
	).Scan(&u.ID, &u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return User{}, ErrDuplicateEmail
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (User, error) {
	return r.user(ctx, "email = $1", email)
}

func (r *Repository) UserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.user(ctx, "id = $1", id)
}

func (r *Repository) user(ctx context.Context, where string, arg any) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) SaveToken(ctx context.Context, t Token) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_tokens (digest, user_id, kind, expires_at) VALUES ($1, $2, $3, $4)`,
		t.Digest, t.UserID, t.Kind, t.ExpiresAt)
	return err
}

// ConsumeToken spends an unspent token and returns it. Expired tokens are
// still returned; checking the expiry is up to the caller. Two concurrent
// consumers of one digest cannot both succeed.
func (r *Repository) ConsumeToken(ctx context.Context, digest string, kind TokenKind) (Token, error) {
	t := Token{Digest: digest, Kind: kind}
	err := r.pool.QueryRow(ctx, `
		UPDATE auth_tokens SET consumed_at = now()
		WHERE digest = $1 AND kind = $2 AND consumed_at IS NULL
		RETURNING user_id, expires_at`, digest, kind,
	).Scan(&t.UserID, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrNotFound
	}
	return t, err
}

// ResetPassword sets a new hash and spends every open token of the user,
// signing out all devices.
func (r *Repository) ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE auth_tokens SET consumed_at = now() WHERE user_id = $1 AND consumed_at IS NULL`, userID)
		return err
	})
}
