package migrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/forgo/commerce/internal/database"
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

// unreachable points at a port nothing listens on. Neither sql.Open nor
// pgxpool.New dial eagerly, so handles can be built without a server.
const unreachable = "postgres://u:p@127.0.0.1:1/none"

type recordingRunner struct {
	calls int
	pool  *pgxpool.Pool
	err   error
}

func (r *recordingRunner) RunMigrations(_ context.Context, pool *pgxpool.Pool) error {
	r.calls++
	r.pool = pool
	return r.err
}

func flags(values map[string]bool) registry.FlagFunc {
	return featureflag.NewRouter(values).IsFeatureEnabled
}

func lazyDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(database.DriverName, unreachable)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func lazyPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), unreachable)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]bool
		want  Kind
	}{
		{"no flags", nil, KindStandard},
		{"unrelated flag", map[string]bool{"sales_channels": true}, KindStandard},
		{"pricing isolated", map[string]bool{"isolate_pricing_domain": true}, KindStandardPlusIsolatedDomains},
		{"product isolated", map[string]bool{"isolate_product_domain": true}, KindStandardPlusIsolatedDomains},
		{"both isolated", map[string]bool{"isolate_pricing_domain": true, "isolate_product_domain": true}, KindStandardPlusIsolatedDomains},
		{"both off", map[string]bool{"isolate_pricing_domain": false, "isolate_product_domain": false}, KindStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Select(flags(tt.flags), registry.Set{}, &recordingRunner{}, zaptest.NewLogger(t))
			assert.Equal(t, tt.want, plan.Kind())
		})
	}
}

func TestSelect_KeepsSet(t *testing.T) {
	set := registry.Set{Entities: []registry.Entity{{Table: "store"}}}
	plan := Select(flags(map[string]bool{"isolate_product_domain": true}), set, nil, nil)

	assert.Equal(t, []string{"store"}, plan.Set().Tables())
}

func TestStandard_RequiresPrimary(t *testing.T) {
	plan := Standard{}
	err := plan.Apply(context.Background(), &Connections{})
	assert.ErrorIs(t, err, ErrMigration)

	err = plan.Apply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMigration)
}

func TestStandard_EmptySetIsNoop(t *testing.T) {
	n, err := RunStandard(context.Background(), lazyDB(t), nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIsolated_NoRunner(t *testing.T) {
	plan := StandardPlusIsolatedDomains{}
	err := plan.Apply(context.Background(), &Connections{Primary: lazyDB(t)})
	assert.ErrorIs(t, err, ErrNoAuxiliaryRunner)
}

func TestIsolated_DialsAndRuns(t *testing.T) {
	runner := &recordingRunner{}
	pool := lazyPool(t)
	dials := 0
	conns := &Connections{
		Primary: lazyDB(t),
		DialAuxiliary: func(context.Context) (*pgxpool.Pool, error) {
			dials++
			return pool, nil
		},
	}

	plan := StandardPlusIsolatedDomains{Standard: Standard{Logger: zaptest.NewLogger(t)}, Auxiliary: runner}
	require.NoError(t, plan.Apply(context.Background(), conns))

	assert.Equal(t, 1, dials)
	assert.Equal(t, 1, runner.calls)
	assert.Same(t, pool, runner.pool)
	assert.Same(t, pool, conns.Auxiliary)
}

func TestIsolated_DialFailure(t *testing.T) {
	runner := &recordingRunner{}
	dialErr := errors.New("dial refused")
	conns := &Connections{
		Primary: lazyDB(t),
		DialAuxiliary: func(context.Context) (*pgxpool.Pool, error) {
			return nil, dialErr
		},
	}

	plan := StandardPlusIsolatedDomains{Auxiliary: runner}
	err := plan.Apply(context.Background(), conns)

	assert.ErrorIs(t, err, dialErr)
	assert.Zero(t, runner.calls)
	assert.Nil(t, conns.Auxiliary)
}

func TestIsolated_RunnerFailure(t *testing.T) {
	runErr := errors.New("module migration broke")
	runner := &recordingRunner{err: runErr}
	pool := lazyPool(t)
	conns := &Connections{Primary: lazyDB(t), Auxiliary: pool}

	plan := StandardPlusIsolatedDomains{Auxiliary: runner}
	err := plan.Apply(context.Background(), conns)

	assert.ErrorIs(t, err, runErr)
	assert.ErrorIs(t, err, ErrMigration)
	// The pool stays on conns so the caller can close it.
	assert.Same(t, pool, conns.Auxiliary)
}
