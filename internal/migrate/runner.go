package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/forgo/commerce/internal/registry"
)

// ErrMigration wraps every failure of a migration run.
var ErrMigration = errors.New("migration failed")

// RunStandard applies migrations to db in version order through goose.
// Versions already recorded in the goose version table are skipped, and
// versions below the highest recorded one are still applied: a clone of a
// migrated template may enable a flag-gated migration older than the
// template's newest. An empty list is a no-op.
func RunStandard(ctx context.Context, db *sql.DB, migrations []registry.Migration, logger *zap.Logger) (int, error) {
	return run(ctx, goose.DialectPostgres, db, migrations, logger)
}

func run(ctx context.Context, dialect goose.Dialect, db *sql.DB, migrations []registry.Migration, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(migrations) == 0 {
		return 0, nil
	}

	provider, err := newProvider(dialect, db, migrations)
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrMigration, err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		logger.Debug("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration))
	}
	if err != nil {
		return len(results), fmt.Errorf("%w: %w", ErrMigration, err)
	}
	return len(results), nil
}

// newProvider never owns db: Provider.Close would close it.
func newProvider(dialect goose.Dialect, db *sql.DB, migrations []registry.Migration) (*goose.Provider, error) {
	gooseMigrations := make([]*goose.Migration, 0, len(migrations))
	for _, m := range migrations {
		gooseMigrations = append(gooseMigrations, toGoose(m))
	}

	return goose.NewProvider(dialect, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithAllowOutofOrder(true),
		goose.WithGoMigrations(gooseMigrations...),
	)
}

func toGoose(m registry.Migration) *goose.Migration {
	up := &goose.GoFunc{RunTx: execSQL(m.Up), Mode: goose.TransactionEnabled}
	down := &goose.GoFunc{RunTx: execSQL(m.Down), Mode: goose.TransactionEnabled}
	return goose.NewGoMigration(m.Version, up, down)
}

func execSQL(stmt string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		if stmt == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx, stmt)
		return err
	}
}
