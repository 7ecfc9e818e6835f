package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/commerce/internal/database"
)

// Querier is the part of *sql.DB the assertion helpers need.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ctx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ============================================================================
// Schema Helpers
// ============================================================================

// TableExists reports whether table exists in the current search path.
func TableExists(t *testing.T, db Querier, table string) bool {
	t.Helper()

	var exists bool
	err := db.QueryRowContext(ctx(t),
		`SELECT to_regclass($1) IS NOT NULL`, database.QuoteIdent(table)).Scan(&exists)
	if err != nil {
		t.Fatalf("helpers: failed to look up table %s: %v", table, err)
	}
	return exists
}

// ColumnExists reports whether table has column.
func ColumnExists(t *testing.T, db Querier, table, column string) bool {
	t.Helper()

	var exists bool
	err := db.QueryRowContext(ctx(t), `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	if err != nil {
		t.Fatalf("helpers: failed to look up column %s.%s: %v", table, column, err)
	}
	return exists
}

// AssertTableExists fails the test if table is missing.
func AssertTableExists(t *testing.T, db Querier, table string) {
	t.Helper()
	if !TableExists(t, db, table) {
		t.Errorf("expected table %s to exist, but it doesn't", table)
	}
}

// AssertTableNotExists fails the test if table is present.
func AssertTableNotExists(t *testing.T, db Querier, table string) {
	t.Helper()
	if TableExists(t, db, table) {
		t.Errorf("expected table %s to not exist, but it does", table)
	}
}

// ============================================================================
// Row Helpers
// ============================================================================

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db Querier, table string) int {
	t.Helper()

	var n int
	query := fmt.Sprintf("SELECT count(*) FROM %s", database.QuoteIdent(table))
	if err := db.QueryRowContext(ctx(t), query).Scan(&n); err != nil {
		t.Fatalf("helpers: failed to count %s: %v", table, err)
	}
	return n
}

// AssertRowCount fails the test unless table has want rows.
func AssertRowCount(t *testing.T, db Querier, table string, want int) {
	t.Helper()
	if got := CountRows(t, db, table); got != want {
		t.Errorf("expected %d rows in %s, got %d", want, table, got)
	}
}

// AssertRecordExists checks that a row with the given id exists.
func AssertRecordExists(t *testing.T, db Querier, table, id string) {
	t.Helper()
	if !recordExists(t, db, table, id) {
		t.Errorf("expected record %s:%s to exist, but it doesn't", table, id)
	}
}

// AssertRecordNotExists checks that no row with the given id exists.
func AssertRecordNotExists(t *testing.T, db Querier, table, id string) {
	t.Helper()
	if recordExists(t, db, table, id) {
		t.Errorf("expected record %s:%s to not exist, but it does", table, id)
	}
}

func recordExists(t *testing.T, db Querier, table, id string) bool {
	t.Helper()

	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", database.QuoteIdent(table))
	if err := db.QueryRowContext(ctx(t), query, id).Scan(&exists); err != nil {
		t.Fatalf("helpers: failed to query for record: %v", err)
	}
	return exists
}

// ReplicationRole returns the session_replication_role of a fresh session.
// It is "origin" unless integrity checks were left disabled.
func ReplicationRole(t *testing.T, db Querier) string {
	t.Helper()

	var role string
	if err := db.QueryRowContext(ctx(t), "SHOW session_replication_role").Scan(&role); err != nil {
		t.Fatalf("helpers: failed to read session_replication_role: %v", err)
	}
	return role
}

// ============================================================================
// Utility Helpers
// ============================================================================

// StringPtr returns a pointer to the string
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the int
func IntPtr(i int) *int {
	return &i
}

// BoolPtr returns a pointer to the bool
func BoolPtr(b bool) *bool {
	return &b
}

// TimePtr returns a pointer to the time
func TimePtr(t time.Time) *time.Time {
	return &t
}
