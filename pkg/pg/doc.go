// Package pg bootstraps PostgreSQL access on pgx/v5: a retrying pool
// constructor, goose migrations from an embedded filesystem, a readiness check
// and error classification helpers.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg, log); err != nil {
//		return err
//	}
//
// Configuration comes from PG_* environment variables; see Config.
package pg
