package pg_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/restauth/pkg/pg"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, pg.IsDuplicateKeyError(dup))
	assert.False(t, pg.IsDuplicateKeyError(fk))
	assert.False(t, pg.IsDuplicateKeyError(nil))

	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(dup))
	assert.False(t, pg.IsNotFoundError(nil))
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, pg.Healthcheck(fakePinger{})(context.Background()))

	err := pg.Healthcheck(fakePinger{err: errors.New("down")})(context.Background())
	assert.ErrorIs(t, err, pg.ErrHealthcheckFailed)
}

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)

	_, err = pg.Connect(context.Background(), pg.Config{ConnectionString: "postgres://%zz"})
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestMigrate_RequiresMigrations(t *testing.T) {
	t.Parallel()

	err := pg.Migrate(context.Background(), nil, nil, pg.Config{}, nil)
	assert.ErrorIs(t, err, pg.ErrMigrationsNotProvided)
}
