// Package pg is the PostgreSQL persistence layer for featurekit, built on
// pgx/v5 and goose/v3.
//
// Connect opens a *pgxpool.Pool with retries, Migrate applies the embedded
// schema and Healthcheck turns the pool into a readiness check. On top of the
// schema the package provides:
//
//   - FeatureTable, a feature.Table for feature.DurableStore. The
//     (name, scope) unique constraint is what makes concurrent resolves of
//     the same key converge on one stored value.
//   - SnapshotRepository, a snapshot.Repository whose entries and events
//     cascade with their snapshot. Prune deletes by creation time.
//   - GroupRepository, a feature.GroupStore.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//
//	store := feature.NewDurableStore(pg.NewFeatureTable(pool), feature.DefaultDurableConfig())
//	engine := snapshot.NewEngine(store, pg.NewSnapshotRepository(pool))
//
// # Error Handling
//
// IsDuplicateKeyError classifies *pgconn.PgError unique violations and
// IsNotFoundError detects pgx.ErrNoRows. FeatureTable.Insert maps unique
// violations to feature.ErrUniqueViolation.
package pg
