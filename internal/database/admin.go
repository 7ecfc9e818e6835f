package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Admin runs server-level statements (create, clone, drop) through the
// maintenance database using admin credentials.
type Admin struct {
	cfg    Config
	logger *zap.Logger
	open   func(ctx context.Context, cfg Config) (*sql.DB, error)
}

// NewAdmin creates an Admin. cfg.Database is the maintenance database,
// usually "postgres".
func NewAdmin(cfg Config, logger *zap.Logger) *Admin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Admin{cfg: cfg, logger: logger, open: Open}
}

func (a *Admin) exec(ctx context.Context, stmt string) error {
	db, err := a.open(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: %v", ErrProvision, err)
	}
	return nil
}

// CreateFromTemplate creates name as a copy of template.
func (a *Admin) CreateFromTemplate(ctx context.Context, name, template string) error {
	stmt := fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", QuoteIdent(name), QuoteIdent(template))
	if err := a.exec(ctx, stmt); err != nil {
		return fmt.Errorf("clone %s from %s: %w", name, template, err)
	}
	a.logger.Debug("database cloned from template",
		zap.String("database", name),
		zap.String("template", template))
	return nil
}

// CreateEmpty creates name from the server's default template.
// It is only used to build the template itself.
func (a *Admin) CreateEmpty(ctx context.Context, name string) error {
	stmt := fmt.Sprintf("CREATE DATABASE %s", QuoteIdent(name))
	if err := a.exec(ctx, stmt); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	a.logger.Debug("database created", zap.String("database", name))
	return nil
}

// DropDatabase drops name, terminating any remaining sessions.
// Dropping a database that does not exist is not an error.
func (a *Admin) DropDatabase(ctx context.Context, name string) error {
	stmt := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", QuoteIdent(name))
	if err := a.exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	a.logger.Debug("database dropped", zap.String("database", name))
	return nil
}

// Exists reports whether name exists on the server.
func (a *Admin) Exists(ctx context.Context, name string) (bool, error) {
	db, err := a.open(ctx, a.cfg)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return exists, nil
}

// IdleDatabases lists the non-template databases whose name starts with
// prefix and that have no open session.
func (a *Admin) IdleDatabases(ctx context.Context, prefix string) ([]string, error) {
	db, err := a.open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT d.datname FROM pg_database d
		WHERE NOT d.datistemplate
		  AND starts_with(d.datname, $1)
		  AND NOT EXISTS (SELECT 1 FROM pg_stat_activity a WHERE a.datname = d.datname)
		ORDER BY d.datname`, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return names, nil
}
