package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/featurekit/pkg/config"
	"github.com/dmitrymomot/featurekit/pkg/feature"
	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/pg"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_NAME" envDefault:"featurekit-migrate"`
}

func main() {
	evict := flag.Bool("evict-expired", false, "delete expired feature records after migrating")
	flag.Parse()

	var app appConfig
	config.MustLoad(&app)

	log := logger.New(logger.WithEnvironment(app.Env, app.Service))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *evict); err != nil {
		log.ErrorContext(ctx, "migration failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, evict bool) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations applied", slog.String("table", cfg.MigrationsTable))

	if !evict {
		return nil
	}
	store := feature.NewDurableStore(pg.NewFeatureTable(pool), feature.DefaultDurableConfig(), feature.WithLogger(log))
	n, err := store.EvictExpired(ctx)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "expired feature records evicted", logger.Count(n))
	return nil
}
