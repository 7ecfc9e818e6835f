// Package migrate selects and applies the migration plan for a test database.
//
// A plan is chosen once, from the feature flags, when a database is
// initialized:
//
//   - Standard applies the filtered entity migrations over the primary
//     connection.
//   - StandardPlusIsolatedDomains does the same and then opens an auxiliary
//     pool on which the application's module runner migrates the isolated
//     domains (pricing, product) it manages outside the entity set.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

// Kind names a plan variant.
type Kind string

const (
	// KindStandard migrates over the primary connection only.
	KindStandard Kind = "standard"
	// KindStandardPlusIsolatedDomains also migrates the isolated domains over
	// an auxiliary connection.
	KindStandardPlusIsolatedDomains Kind = "standard+isolated-domains"
)

// ErrNoAuxiliaryRunner is returned when the isolated-domain plan has nothing
// to run on the auxiliary connection.
var ErrNoAuxiliaryRunner = errors.New("no auxiliary migration runner")

// IsolationFlags are the flags that switch on the auxiliary path.
var IsolationFlags = []string{
	featureflag.IsolateProductDomain.Key,
	featureflag.IsolatePricingDomain.Key,
}

// AuxiliaryRunner migrates schema that lives outside the entity set.
type AuxiliaryRunner interface {
	RunMigrations(ctx context.Context, pool *pgxpool.Pool) error
}

// Connections are the handles a plan works with. Auxiliary is filled in by
// plans that need it; DialAuxiliary opens it.
type Connections struct {
	Primary       *sql.DB
	Auxiliary     *pgxpool.Pool
	DialAuxiliary func(ctx context.Context) (*pgxpool.Pool, error)
}

// Plan applies migrations to a freshly cloned database.
type Plan interface {
	Kind() Kind
	// Set is the entity and migration set owned by the primary connection.
	Set() registry.Set
	Apply(ctx context.Context, conns *Connections) error
}

// Select picks the plan variant for the current flags.
func Select(enabled registry.FlagFunc, set registry.Set, aux AuxiliaryRunner, logger *zap.Logger) Plan {
	if logger == nil {
		logger = zap.NewNop()
	}
	std := Standard{Entities: set, Logger: logger}
	for _, flag := range IsolationFlags {
		if enabled(flag) {
			return StandardPlusIsolatedDomains{Standard: std, Auxiliary: aux}
		}
	}
	return std
}

// Standard runs the entity migrations only.
type Standard struct {
	Entities registry.Set
	Logger   *zap.Logger
}

// Kind returns KindStandard.
func (p Standard) Kind() Kind { return KindStandard }

// Set returns the entity and migration set applied over the primary connection.
func (p Standard) Set() registry.Set { return p.Entities }

// Apply runs the set's migrations through goose on conns.Primary.
func (p Standard) Apply(ctx context.Context, conns *Connections) error {
	if conns == nil || conns.Primary == nil {
		return fmt.Errorf("%w: no primary connection", ErrMigration)
	}
	n, err := RunStandard(ctx, conns.Primary, p.Entities.Migrations, p.Logger)
	if err != nil {
		return err
	}
	p.logger().Info("standard migrations applied",
		zap.Int("applied", n),
		zap.Int("planned", len(p.Entities.Migrations)))
	return nil
}

func (p Standard) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// StandardPlusIsolatedDomains runs the entity migrations, then the
// application's own runner over an auxiliary pool.
type StandardPlusIsolatedDomains struct {
	Standard
	Auxiliary AuxiliaryRunner
}

// Kind returns KindStandardPlusIsolatedDomains.
func (p StandardPlusIsolatedDomains) Kind() Kind { return KindStandardPlusIsolatedDomains }

// Apply runs the standard migrations, dials the auxiliary pool if conns has
// none, and hands it to the auxiliary runner. The pool stays in conns for the
// caller to close.
func (p StandardPlusIsolatedDomains) Apply(ctx context.Context, conns *Connections) error {
	if p.Auxiliary == nil {
		return ErrNoAuxiliaryRunner
	}
	if err := p.Standard.Apply(ctx, conns); err != nil {
		return err
	}

	if conns.Auxiliary == nil {
		if conns.DialAuxiliary == nil {
			return fmt.Errorf("%w: no auxiliary dialer", ErrMigration)
		}
		pool, err := conns.DialAuxiliary(ctx)
		if err != nil {
			return fmt.Errorf("auxiliary connection: %w", err)
		}
		conns.Auxiliary = pool
	}

	if err := p.Auxiliary.RunMigrations(ctx, conns.Auxiliary); err != nil {
		return fmt.Errorf("%w: isolated domains: %w", ErrMigration, err)
	}
	p.logger().Info("isolated domain migrations applied")
	return nil
}
