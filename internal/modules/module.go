// Package modules holds the independently versioned modules of the commerce
// application and the two ways their schema reaches a test database.
//
// A module whose isolation flag is off shares its entities and migrations with
// the application; Resolver returns them so they are merged into the primary
// set. A module whose isolation flag is on manages its own schema lifecycle:
// App.RunMigrations applies its migrations over a separate pool and records
// them in module_migrations.
package modules

import (
	"strings"

	"github.com/forgo/commerce/internal/config"
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

// Module is one independently versioned module.
type Module struct {
	Name    string
	Version string
	// IsolationFlag moves the module onto its own migration path when on.
	IsolationFlag string
	Resources     registry.Set
}

// Isolated reports whether the module manages its own schema under router.
func (m Module) Isolated(router *featureflag.Router) bool {
	return m.IsolationFlag != "" && router.IsFeatureEnabled(m.IsolationFlag)
}

// Default returns every module the application ships with.
func Default() []Module {
	return []Module{Pricing(), Product()}
}

// Resolver returns the resources modules share with the application.
type Resolver struct {
	modules []Module
}

// NewResolver creates a resolver over mods, or over Default when none are given.
func NewResolver(mods ...Module) *Resolver {
	if len(mods) == 0 {
		mods = Default()
	}
	return &Resolver{modules: mods}
}

// Resolve merges the flag-filtered resources of every configured module that
// is not isolated.
func (r *Resolver) Resolve(cfg *config.Config, router *featureflag.Router) (registry.Set, error) {
	var shared registry.Set
	for _, m := range r.configured(cfg) {
		if m.Isolated(router) {
			continue
		}
		merged, err := shared.Merge(m.Resources.Filter(router.IsFeatureEnabled))
		if err != nil {
			return registry.Set{}, err
		}
		shared = merged
	}
	return shared, nil
}

// Isolated returns the configured modules that manage their own schema.
func (r *Resolver) Isolated(cfg *config.Config, router *featureflag.Router) []Module {
	var out []Module
	for _, m := range r.configured(cfg) {
		if m.Isolated(router) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Resolver) configured(cfg *config.Config) []Module {
	var out []Module
	for _, m := range r.modules {
		if cfg != nil && !cfg.ModuleEnabled(strings.ToLower(m.Name)) {
			continue
		}
		out = append(out, m)
	}
	return out
}
