package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/forgo/commerce/internal/commerce"
	"github.com/forgo/commerce/internal/config"
	"github.com/forgo/commerce/internal/database"
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/migrate"
	"github.com/forgo/commerce/internal/modules"
	"github.com/forgo/commerce/internal/registry"
)

var (
	// ErrNoConnection is returned by every operation that needs a handle the
	// manager does not hold: before Initialize succeeded or after Shutdown.
	ErrNoConnection = errors.New("testdb: no database connection")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("testdb: already initialized")
)

// State is the lifecycle state of a Manager.
type State int

const (
	// StateUninitialized holds no handles; only Initialize is allowed.
	StateUninitialized State = iota
	// StateReady holds the primary handle and, when planned, the auxiliary one.
	StateReady
	// StateClosed is terminal: handles are released and the database dropped.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Provisioner creates and drops databases at the server level.
// database.Admin implements it.
type Provisioner interface {
	CreateFromTemplate(ctx context.Context, name, template string) error
	CreateEmpty(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
}

// ModuleResolver returns the resources modules share with the application.
type ModuleResolver interface {
	Resolve(cfg *config.Config, router *featureflag.Router) (registry.Set, error)
}

// Options wires a Manager to its collaborators. Zero values select the
// commerce application defaults.
type Options struct {
	Registry       registry.Registry
	Resolver       ModuleResolver
	Flags          []featureflag.Flag
	RetainedTables []string
	Logger         *zap.Logger

	// AuxiliaryRunner builds the runner for the isolated-domain plan.
	AuxiliaryRunner func(cfg *config.Config, router *featureflag.Router) migrate.AuxiliaryRunner
	// Provisioner builds the admin collaborator from the loaded config.
	Provisioner func(cfg *config.Config) Provisioner
	// Open opens the primary handle.
	Open func(ctx context.Context, cfg database.Config) (*sql.DB, error)
	// OpenPool opens the auxiliary handle.
	OpenPool func(ctx context.Context, cfg database.Config) (*pgxpool.Pool, error)

	Setenv    func(key, value string) error
	LookupEnv featureflag.LookupFunc
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Registry == nil {
		o.Registry = commerce.Registry{}
	}
	if o.Resolver == nil {
		o.Resolver = modules.NewResolver()
	}
	if o.Flags == nil {
		o.Flags = featureflag.Definitions()
	}
	if o.RetainedTables == nil {
		o.RetainedTables = commerce.RetainedTables
	}
	if o.AuxiliaryRunner == nil {
		logger := o.Logger
		o.AuxiliaryRunner = func(cfg *config.Config, router *featureflag.Router) migrate.AuxiliaryRunner {
			return modules.NewApp(cfg, router, nil, logger)
		}
	}
	if o.Provisioner == nil {
		logger := o.Logger
		o.Provisioner = func(cfg *config.Config) Provisioner {
			return database.NewAdmin(AdminConfig(cfg), logger)
		}
	}
	if o.Open == nil {
		o.Open = database.Open
	}
	if o.OpenPool == nil {
		o.OpenPool = database.OpenPool
	}
	if o.Setenv == nil {
		o.Setenv = os.Setenv
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
	return o
}

// InitOptions are the per-run inputs of Initialize.
type InitOptions struct {
	// WorkDir is where the config file is looked up.
	WorkDir string
	// DatabaseExtra are driver options added to both connections.
	DatabaseExtra map[string]string
	// Env is applied to the process environment before the config is loaded.
	// It is not restored afterwards.
	Env map[string]string
	// DatabaseName overrides DB_TEMP_NAME when set.
	DatabaseName string
}

// TeardownOptions control Teardown.
type TeardownOptions struct {
	// ForceDelete empties these tables even when they are retained.
	ForceDelete []string
}

// Manager owns one ephemeral database: initialize, then any number of
// clear/teardown calls, then shutdown. It is not meant for concurrent use;
// the mutex only keeps misuse from going unnoticed.
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	prepared    *Prepared
	provisioner Provisioner
	primary     *sql.DB
	auxiliary   *pgxpool.Pool
}

// NewManager creates an uninitialized manager.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{opts: opts, logger: opts.Logger}
}

// Initialize clones the template into a fresh database, opens the primary
// connection and applies the migration plan. On failure nothing is left
// behind: handles are closed, the clone is dropped and the manager stays
// uninitialized.
func (m *Manager) Initialize(ctx context.Context, init InitOptions) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReady:
		return nil, ErrAlreadyInitialized
	case StateClosed:
		return nil, fmt.Errorf("%w: manager is closed", ErrNoConnection)
	}

	prepared, err := Prepare(m.opts, init)
	if err != nil {
		return nil, err
	}

	name := prepared.Database.Database
	logger := m.logger.With(zap.String("database", name))
	provisioner := m.opts.Provisioner(prepared.Config)
	conns := &migrate.Connections{
		DialAuxiliary: func(ctx context.Context) (*pgxpool.Pool, error) {
			return m.opts.OpenPool(ctx, prepared.Database)
		},
	}

	steps := database.NewSteps(logger)
	steps.Add("clone",
		func(ctx context.Context) error {
			return provisioner.CreateFromTemplate(ctx, name, prepared.Config.Database.Template)
		},
		func(ctx context.Context) error {
			return provisioner.DropDatabase(ctx, name)
		})
	steps.Add("open",
		func(ctx context.Context) error {
			db, err := m.opts.Open(ctx, prepared.Database)
			if err != nil {
				return err
			}
			conns.Primary = db
			return nil
		},
		func(context.Context) error {
			return conns.Primary.Close()
		})
	steps.Add("migrate",
		func(ctx context.Context) error {
			if err := prepared.Plan.Apply(ctx, conns); err != nil {
				if conns.Auxiliary != nil {
					conns.Auxiliary.Close()
					conns.Auxiliary = nil
				}
				return err
			}
			return nil
		}, nil)

	if err := steps.Run(ctx); err != nil {
		logger.Error("initialize failed", zap.Error(err))
		return nil, err
	}

	m.prepared = prepared
	m.provisioner = provisioner
	m.primary = conns.Primary
	m.auxiliary = conns.Auxiliary
	m.state = StateReady

	logger.Info("test database ready",
		zap.String("plan", string(prepared.Plan.Kind())),
		zap.Int("entities", len(prepared.Plan.Set().Entities)),
		zap.Int("migrations", len(prepared.Plan.Set().Migrations)),
		zap.Bool("auxiliary", m.auxiliary != nil))

	return m.primary, nil
}

// ready returns an error unless the manager holds its handles.
// Callers hold m.mu.
func (m *Manager) ready() error {
	switch m.state {
	case StateReady:
		return nil
	case StateClosed:
		return fmt.Errorf("%w: manager is closed", ErrNoConnection)
	default:
		return fmt.Errorf("%w: manager is not initialized", ErrNoConnection)
	}
}

// Clear drops every entity table and recreates it from the entity model, in
// one transaction. Rows are lost, including seed rows in retained tables.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}

	entities := m.prepared.Plan.Set().Entities
	tx, err := m.primary.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrConnection, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := len(entities) - 1; i >= 0; i-- {
		stmt := "DROP TABLE IF EXISTS " + database.QuoteIdent(entities[i].Table) + " CASCADE"
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: drop %s: %v", database.ErrQuery, entities[i].Table, err)
		}
	}
	for _, e := range entities {
		if _, err := tx.ExecContext(ctx, e.DDL); err != nil {
			return fmt.Errorf("%w: create %s: %v", database.ErrQuery, e.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	m.logger.Debug("schema cleared", zap.Int("entities", len(entities)))
	return nil
}

// Teardown deletes every row of every entity table except the retained ones.
// Tables named in ForceDelete are emptied even if retained. Foreign key
// enforcement is suspended for the pass and always restored.
func (m *Manager) Teardown(ctx context.Context, opts TeardownOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}

	tables := TablesToDelete(m.prepared.Plan.Set().Tables(), m.opts.RetainedTables, opts.ForceDelete)
	err := database.WithoutIntegrity(ctx, m.primary, func(conn *sql.Conn) error {
		for _, table := range tables {
			if _, err := conn.ExecContext(ctx, "DELETE FROM "+database.QuoteIdent(table)); err != nil {
				return fmt.Errorf("%w: delete from %s: %v", database.ErrQuery, table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("tables emptied", zap.Strings("tables", tables))
	return nil
}

// TablesToDelete returns tables minus retained, except that tables named in
// force are always kept in the result. Order follows tables.
func TablesToDelete(tables, retained, force []string) []string {
	keep := make(map[string]bool, len(retained))
	for _, t := range retained {
		keep[t] = true
	}
	for _, t := range force {
		delete(keep, t)
	}

	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if !keep[t] {
			out = append(out, t)
		}
	}
	return out
}

// Shutdown closes the primary connection, the auxiliary one if it was opened,
// and drops the database with the admin credentials. The manager is closed
// afterwards even if a step failed; all failures are returned joined.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}

	var errs []error
	if err := m.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close primary: %w", err))
	}
	if m.auxiliary != nil {
		m.auxiliary.Close()
	}

	name := m.prepared.Database.Database
	if err := m.provisioner.DropDatabase(ctx, name); err != nil {
		errs = append(errs, err)
	}

	m.primary = nil
	m.auxiliary = nil
	m.state = StateClosed

	if len(errs) > 0 {
		m.logger.Error("shutdown incomplete", zap.String("database", name), zap.Error(errors.Join(errs...)))
		return errors.Join(errs...)
	}
	m.logger.Info("test database dropped", zap.String("database", name))
	return nil
}

// Primary returns the primary connection.
func (m *Manager) Primary() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.primary, nil
}

// Auxiliary returns the auxiliary pool. It is nil without error when the
// plan did not need one.
func (m *Manager) Auxiliary() (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.auxiliary, nil
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Prepared returns what Initialize resolved, or nil before it succeeded.
func (m *Manager) Prepared() *Prepared {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepared
}
