package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
)

const (
	suspendIntegrity = "SET session_replication_role = 'replica'"
	restoreIntegrity = "SET session_replication_role = 'origin'"
)

// WithoutIntegrity runs fn on a single pinned connection with foreign key
// triggers suspended. Enforcement is restored after fn returns, whether or not
// fn failed. If restoring fails the connection is discarded so it cannot go
// back to the pool in replica mode. fn's error is returned joined with any
// restore error.
func WithoutIntegrity(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, suspendIntegrity); err != nil {
		return fmt.Errorf("%w: suspend integrity: %v", ErrQuery, err)
	}

	defer func() {
		// Restore with a context that outlives a cancelled caller.
		if _, rerr := conn.ExecContext(context.WithoutCancel(ctx), restoreIntegrity); rerr != nil {
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			err = errors.Join(err, fmt.Errorf("%w: restore integrity: %v", ErrQuery, rerr))
		}
	}()

	return fn(conn)
}
