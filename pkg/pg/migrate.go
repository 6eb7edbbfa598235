package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/dmitrymomot/restauth/pkg/logger"
)

// Migrate applies the goose migrations found at the root of migrations.
// Packages ship their schema as an embed.FS so the binary carries it.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger) error {
	if migrations == nil {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationsNotProvided)
	}
	if log == nil {
		log = logger.Discard()
	}
	table := cfg.MigrationsTable
	if table == "" {
		table = "schema_migrations"
	}

	// goose works on database/sql; this shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration db handle", logger.Error(err), logger.Component("pg"))
		}
	}()

	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	provider, err := goose.NewProvider("", db, migrations, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("path", r.Source.Path),
			logger.Duration(r.Duration),
			logger.Component("pg"),
		)
	}

	return nil
}
