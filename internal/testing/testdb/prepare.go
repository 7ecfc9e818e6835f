package testdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgo/commerce/internal/config"
	"github.com/forgo/commerce/internal/database"
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/migrate"
	"github.com/forgo/commerce/internal/registry"
)

// Prepared is everything resolved before a database is touched.
type Prepared struct {
	Config   *config.Config
	Flags    *featureflag.Router
	Plan     migrate.Plan
	Database database.Config
}

// Prepare applies the environment overrides, loads the configuration and the
// feature flags, and builds the migration plan from the registry and the
// module resources.
func Prepare(opts Options, init InitOptions) (*Prepared, error) {
	opts = opts.withDefaults()

	for k, v := range init.Env {
		if err := opts.Setenv(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}

	cfg, err := config.Load(init.WorkDir)
	if err != nil {
		return nil, err
	}
	if init.DatabaseName != "" {
		cfg.Database.Name = init.DatabaseName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	router := featureflag.Load(cfg.FeatureFlags, opts.Flags, opts.LookupEnv)

	core := registry.FromRegistry(opts.Registry).Filter(router.IsFeatureEnabled)
	shared, err := opts.Resolver.Resolve(cfg, router)
	if err != nil {
		return nil, fmt.Errorf("resolve module resources: %w", err)
	}
	set, err := core.Merge(shared)
	if err != nil {
		return nil, err
	}

	plan := migrate.Select(router.IsFeatureEnabled, set, opts.AuxiliaryRunner(cfg, router), opts.Logger)

	return &Prepared{
		Config: cfg,
		Flags:  router,
		Plan:   plan,
		Database: database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			Params:   init.DatabaseExtra,
		},
	}, nil
}

// AdminConfig is the admin connection for cfg: same server, admin
// credentials, maintenance database.
func AdminConfig(cfg *config.Config) database.Config {
	return database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Admin.User,
		Password: cfg.Admin.Password,
		Database: cfg.Admin.Database,
	}
}

// TemplateOptions control BuildTemplate.
type TemplateOptions struct {
	// Empty leaves the template without any migration applied, so every
	// clone runs the full plan for its own flags.
	Empty bool
}

// TemplateSet is what a migrated template holds: the application's
// migrations that no feature flag gates. Module migrations are left out
// because where they run depends on the isolation flags of each clone.
func TemplateSet(reg registry.Registry) registry.Set {
	return registry.FromRegistry(reg).Baseline()
}

// BuildTemplate drops and recreates the template database, then applies
// TemplateSet to it unless Empty is set. Clones apply the rest of their own
// plan on Initialize.
func BuildTemplate(ctx context.Context, opts Options, init InitOptions, topts TemplateOptions) error {
	opts = opts.withDefaults()

	prepared, err := Prepare(opts, init)
	if err != nil {
		return err
	}

	name := prepared.Config.Database.Template
	logger := opts.Logger.With(zap.String("template", name))
	provisioner := opts.Provisioner(prepared.Config)

	if err := provisioner.DropDatabase(ctx, name); err != nil {
		return err
	}
	if err := provisioner.CreateEmpty(ctx, name); err != nil {
		return err
	}
	if topts.Empty {
		logger.Info("empty template created")
		return nil
	}

	db, err := opts.Open(ctx, prepared.Database.WithDatabase(name))
	if err != nil {
		return err
	}

	set := TemplateSet(opts.Registry)
	plan := migrate.Standard{Entities: set, Logger: logger}
	applyErr := plan.Apply(ctx, &migrate.Connections{Primary: db})

	// A template must have no open sessions to be cloned.
	if err := errors.Join(applyErr, db.Close()); err != nil {
		return err
	}

	logger.Info("template built", zap.Int("migrations", len(set.Migrations)))
	return nil
}

// UniqueName returns prefix followed by a random suffix, usable as a
// database name.
func UniqueName(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return "test_" + suffix
	}
	return prefix + "_" + suffix
}
