package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"

	"github.com/forgo/commerce/internal/registry"
)

// The goose bookkeeping is dialect independent, so version ordering is
// exercised on a file-backed SQLite database.
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

var (
	baseInitial = registry.Migration{Version: 1700000000001, Name: "initial", Up: "CREATE TABLE region (id TEXT PRIMARY KEY)"}
	baseTaxRate = registry.Migration{Version: 1700000000002, Name: "tax_rate", Up: "ALTER TABLE region ADD COLUMN tax_rate NUMERIC"}
	gatedTable  = registry.Migration{Version: 1700000000003, Name: "sales_channels", FeatureFlag: "sales_channels", Up: "CREATE TABLE sales_channel (id TEXT PRIMARY KEY)"}
	moduleTable = registry.Migration{Version: 1720000000001, Name: "product_initial", Up: "CREATE TABLE product (id TEXT PRIMARY KEY)"}
)

func TestRun_AppliesInOrderOnce(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	set := []registry.Migration{baseInitial, baseTaxRate}

	n, err := run(ctx, goose.DialectSQLite3, db, set, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = run(ctx, goose.DialectSQLite3, db, set, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "recorded versions are skipped")
}

func TestRun_EmptyIsNoop(t *testing.T) {
	n, err := run(context.Background(), goose.DialectSQLite3, openSQLite(t), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_FlaggedVersionBelowRecordedMaximum(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	// A database migrated without the flag already holds a newer version.
	_, err := run(ctx, goose.DialectSQLite3, db,
		[]registry.Migration{baseInitial, baseTaxRate, moduleTable}, nil)
	require.NoError(t, err)

	n, err := run(ctx, goose.DialectSQLite3, db,
		[]registry.Migration{baseInitial, baseTaxRate, gatedTable, moduleTable}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, tableExists(t, db, "sales_channel"))
}

func TestRun_FailureWrapsErrMigration(t *testing.T) {
	db := openSQLite(t)
	broken := registry.Migration{Version: 1, Name: "broken", Up: "CREATE TABLE"}

	_, err := run(context.Background(), goose.DialectSQLite3, db, []registry.Migration{broken}, nil)
	assert.ErrorIs(t, err, ErrMigration)
}
