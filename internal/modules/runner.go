package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/forgo/commerce/internal/config"
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

// VersionTable records the migrations applied by App.
const VersionTable = "module_migrations"

const createVersionTable = `CREATE TABLE IF NOT EXISTS module_migrations (
	module     TEXT NOT NULL,
	version    BIGINT NOT NULL,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (module, version)
)`

// App is the application bootstrapper's migration runner for isolated
// modules. It implements migrate.AuxiliaryRunner.
type App struct {
	modules []Module
	router  *featureflag.Router
	logger  *zap.Logger
}

// NewApp selects the isolated modules under cfg and router.
func NewApp(cfg *config.Config, router *featureflag.Router, resolver *Resolver, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewResolver()
	}
	return &App{
		modules: resolver.Isolated(cfg, router),
		router:  router,
		logger:  logger,
	}
}

// Modules returns the modules the app migrates.
func (a *App) Modules() []Module {
	return a.modules
}

// RunMigrations applies every pending migration of every isolated module,
// one transaction per migration. Already recorded versions are skipped.
func (a *App) RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("modules: nil pool")
	}
	if _, err := pool.Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("create %s: %w", VersionTable, err)
	}

	for _, m := range a.modules {
		set := m.Resources.Filter(a.router.IsFeatureEnabled)
		if err := set.Sort(); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}

		applied := 0
		for _, mig := range set.Migrations {
			ok, err := a.apply(ctx, pool, m.Name, mig)
			if err != nil {
				return fmt.Errorf("module %s migration %d (%s): %w", m.Name, mig.Version, mig.Name, err)
			}
			if ok {
				applied++
			}
		}

		a.logger.Info("module migrated",
			zap.String("module", m.Name),
			zap.String("version", m.Version),
			zap.Int("applied", applied))
	}
	return nil
}

func (a *App) apply(ctx context.Context, pool *pgxpool.Pool, module string, mig registry.Migration) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM module_migrations WHERE module = $1 AND version = $2)",
		module, mig.Version).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if mig.Up != "" {
		if _, err := tx.Exec(ctx, mig.Up); err != nil {
			return false, err
		}
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO module_migrations (module, version, name) VALUES ($1, $2, $3)",
		module, mig.Version, mig.Name); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	a.logger.Debug("module migration applied",
		zap.String("module", module),
		zap.Int64("version", mig.Version))
	return true, nil
}

// AppliedVersions lists the versions recorded for module.
func AppliedVersions(ctx context.Context, pool *pgxpool.Pool, module string) ([]int64, error) {
	rows, err := pool.Query(ctx,
		"SELECT version FROM module_migrations WHERE module = $1 ORDER BY version", module)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
