// Package pgstore is a PostgreSQL mfa.Store on pgx.
package pgstore

import (
	"context"
	"embed"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/pg"
	"github.com/dmitrymomot/restauth/pkg/totp"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the goose migrations for pg.Migrate.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store keeps authenticators in the mfa_authenticators table.
type Store struct {
	db DB
}

// New returns a Store over db. Apply Migrations first.
func New(db DB) *Store {
	return &Store{db: db}
}

const (
	getQuery = `
SELECT user_id, type, data, created_at, last_used_at
FROM mfa_authenticators
WHERE user_id = $1 AND type = $2`

	insertQuery = `
INSERT INTO mfa_authenticators (user_id, type, data, created_at, last_used_at)
VALUES ($1, $2, $3, $4, $5)`

	upsertQuery = insertQuery + `
ON CONFLICT (user_id, type) DO UPDATE
SET data = EXCLUDED.data,
    created_at = EXCLUDED.created_at,
    last_used_at = EXCLUDED.last_used_at`

	touchQuery = `
UPDATE mfa_authenticators
SET last_used_at = $3
WHERE user_id = $1 AND type = $2`

	// The mask test and the update run as one statement, so a code is
	// consumed at most once even under concurrent requests.
	consumeQuery = `
UPDATE mfa_authenticators
SET data = jsonb_set(data, '{used_mask}', to_jsonb(COALESCE((data->>'used_mask')::bigint, 0) | $3::bigint)),
    last_used_at = $4
WHERE user_id = $1
  AND type = 'recovery_codes'
  AND data->>'seed' = $2
  AND COALESCE((data->>'used_mask')::bigint, 0) & $3::bigint = 0`

	deleteQuery = `
DELETE FROM mfa_authenticators
WHERE user_id = $1 AND type = ANY($2)`
)

func (s *Store) Get(ctx context.Context, userID string, t mfa.FactorType) (*mfa.Authenticator, error) {
	var (
		a   mfa.Authenticator
		typ string
	)
	err := s.db.QueryRow(ctx, getQuery, userID, string(t)).
		Scan(&a.UserID, &typ, &a.Data, &a.CreatedAt, &a.LastUsedAt)
	if pg.IsNotFoundError(err) {
		return nil, mfa.ErrAuthenticatorNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Type = mfa.FactorType(typ)
	a.CreatedAt = a.CreatedAt.UTC()
	if a.LastUsedAt != nil {
		utc := a.LastUsedAt.UTC()
		a.LastUsedAt = &utc
	}
	return &a, nil
}

func (s *Store) Insert(ctx context.Context, a *mfa.Authenticator) error {
	_, err := s.db.Exec(ctx, insertQuery, args(a)...)
	if pg.IsDuplicateKeyError(err) {
		return mfa.ErrAuthenticatorExists
	}
	return err
}

func (s *Store) Upsert(ctx context.Context, a *mfa.Authenticator) error {
	_, err := s.db.Exec(ctx, upsertQuery, args(a)...)
	return err
}

func (s *Store) Touch(ctx context.Context, userID string, t mfa.FactorType, at time.Time) error {
	tag, err := s.db.Exec(ctx, touchQuery, userID, string(t), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mfa.ErrAuthenticatorNotFound
	}
	return nil
}

func (s *Store) ConsumeRecoveryCode(ctx context.Context, userID, seed string, index int, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, consumeQuery, userID, seed, totp.RecoveryCodeBit(index), at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Delete(ctx context.Context, userID string, types ...mfa.FactorType) error {
	names := make([]string, 0, len(mfa.AllFactors))
	for _, t := range mfa.FactorsOrAll(types) {
		names = append(names, string(t))
	}
	_, err := s.db.Exec(ctx, deleteQuery, userID, names)
	return err
}

func args(a *mfa.Authenticator) []any {
	return []any{a.UserID, string(a.Type), a.Data, a.CreatedAt, a.LastUsedAt}
}
