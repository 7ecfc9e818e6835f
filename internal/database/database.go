package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a statement execution failure.
	ErrQuery = errors.New("query error")

	// ErrProvision indicates a database could not be created or dropped.
	ErrProvision = errors.New("database provisioning error")
)

// Config holds Postgres connection settings for one database.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string

	// Params are extra driver options appended to the connection URL,
	// e.g. sslmode, application_name or any runtime parameter.
	Params map[string]string
}

// URL builds the connection URL.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if len(c.Params) > 0 {
		keys := make([]string, 0, len(c.Params))
		for k := range c.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		q := url.Values{}
		for _, k := range keys {
			q.Set(k, c.Params[k])
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// WithDatabase returns a copy of c pointing at another database.
func (c Config) WithDatabase(name string) Config {
	c.Database = name
	return c
}

// Open opens and pings a database/sql handle using the pgx driver.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open(DriverName, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrConnection, cfg.Database, err)
	}
	return db, nil
}

// OpenPool opens a native pgx pool. It is used where code talks to Postgres
// without database/sql.
func OpenPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrConnection, cfg.Database, err)
	}
	return pool, nil
}

// QuoteIdent quotes a single identifier for use in SQL text.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
