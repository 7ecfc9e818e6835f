package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/forgo/commerce/internal/database"
)

// TestDB is a Manager bound to a test. The database is dropped on t.Cleanup.
type TestDB struct {
	*Manager
	DB *sql.DB
	t  *testing.T
}

// New initializes a uniquely named test database with default options.
func New(t *testing.T, init InitOptions) *TestDB {
	t.Helper()
	return NewWithOptions(t, Options{Logger: zaptest.NewLogger(t)}, init)
}

// NewWithOptions is New with explicit collaborators.
func NewWithOptions(t *testing.T, opts Options, init InitOptions) *TestDB {
	t.Helper()

	if init.DatabaseName == "" {
		init.DatabaseName = UniqueName("commerce_test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m := NewManager(opts)
	db, err := m.Initialize(ctx, init)
	if err != nil {
		t.Fatalf("testdb: initialize %s: %v", init.DatabaseName, err)
	}

	tdb := &TestDB{Manager: m, DB: db, t: t}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if m.State() != StateReady {
			return
		}
		if err := m.Shutdown(ctx); err != nil {
			t.Errorf("testdb: shutdown: %v", err)
		}
	})

	return tdb
}

// Reset empties every non-retained table, failing the test on error.
func (tdb *TestDB) Reset(t *testing.T, forceDelete ...string) {
	t.Helper()
	if err := tdb.Teardown(tdb.Ctx(), TeardownOptions{ForceDelete: forceDelete}); err != nil {
		t.Fatalf("testdb: teardown: %v", err)
	}
}

// Ctx returns a context with a reasonable timeout for test operations.
// The cancel function is released when the test finishes.
func (tdb *TestDB) Ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tdb.t.Cleanup(cancel)
	return ctx
}

// MustExec executes a statement and fails the test on error.
func (tdb *TestDB) MustExec(query string, args ...any) {
	tdb.t.Helper()
	if _, err := tdb.DB.ExecContext(tdb.Ctx(), query, args...); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}

// MustCount returns the number of rows in table, failing the test on error.
func (tdb *TestDB) MustCount(table string) int {
	tdb.t.Helper()
	var n int
	query := fmt.Sprintf("SELECT count(*) FROM %s", database.QuoteIdent(table))
	if err := tdb.DB.QueryRowContext(tdb.Ctx(), query).Scan(&n); err != nil {
		tdb.t.Fatalf("testdb: count %s: %v", table, err)
	}
	return n
}

// Shared is a TestDB shared across subtests.
type Shared struct {
	*TestDB
}

// NewShared creates a shared test database for use across multiple subtests.
// Use this when provisioning overhead is significant and tests can share schema.
func NewShared(t *testing.T, init InitOptions) *Shared {
	return &Shared{TestDB: New(t, init)}
}

// SetupSubtest resets the database and returns a TestDB bound to the subtest.
// Call this at the start of each t.Run() block.
func (s *Shared) SetupSubtest(t *testing.T) *TestDB {
	t.Helper()
	sub := &TestDB{Manager: s.Manager, DB: s.DB, t: t}
	sub.Reset(t)
	return sub
}
