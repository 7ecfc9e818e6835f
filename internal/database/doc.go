// Package database provides Postgres connectivity for the commerce test
// database lifecycle.
//
// # Connections
//
// Two kinds of handle are used:
//
//   - Open returns a database/sql handle backed by the pgx driver. It owns the
//     entity schema and the standard migrations.
//   - OpenPool returns a native pgxpool.Pool, used by module runners that
//     manage their own schema.
//
// # Provisioning
//
// Admin creates databases by cloning a template and drops them, always through
// the maintenance database and the admin credentials:
//
//	admin := database.NewAdmin(adminCfg, logger)
//	if err := admin.CreateFromTemplate(ctx, "commerce_test", "commerce_template"); err != nil {
//	    return err
//	}
//	defer admin.DropDatabase(ctx, "commerce_test")
//
// # Referential Integrity
//
// WithoutIntegrity pins one connection, switches session_replication_role to
// replica for the duration of a callback and always switches it back.
//
// # Error Types
//
//   - ErrConnection: Database connection failed
//   - ErrQuery: Statement execution failed
//   - ErrProvision: Database create or drop failed
package database
