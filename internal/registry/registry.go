// Package registry describes the entities and migrations a host application
// hands to the test database lifecycle.
//
// Descriptors are supplied explicitly through the Registry interface instead
// of being discovered on disk. A Set can be filtered by feature flag and
// merged with the shared resources of independently versioned modules.
package registry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateVersion indicates two migrations in a set share a version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// Entity describes one table owned by the application.
type Entity struct {
	Name string
	// Table is the unquoted table name.
	Table string
	// FeatureFlag gates the entity; empty means always on.
	FeatureFlag string
	// DDL creates the table. It must be safe to run on an empty schema.
	DDL string
}

// Migration describes one schema migration.
type Migration struct {
	Version     int64
	Name        string
	FeatureFlag string
	Up          string
	Down        string
}

// Registry supplies the application's own descriptors.
type Registry interface {
	Entities() []Entity
	Migrations() []Migration
}

// FlagFunc reports whether a feature flag is on.
type FlagFunc func(key string) bool

// Set is an ordered collection of entities and migrations.
type Set struct {
	Entities   []Entity
	Migrations []Migration
}

// FromRegistry copies a registry into a Set.
func FromRegistry(r Registry) Set {
	return Set{
		Entities:   append([]Entity(nil), r.Entities()...),
		Migrations: append([]Migration(nil), r.Migrations()...),
	}
}

// Filter keeps the descriptors without a flag or whose flag is enabled.
// Order is preserved.
func (s Set) Filter(enabled FlagFunc) Set {
	var out Set
	for _, e := range s.Entities {
		if e.FeatureFlag == "" || enabled(e.FeatureFlag) {
			out.Entities = append(out.Entities, e)
		}
	}
	for _, m := range s.Migrations {
		if m.FeatureFlag == "" || enabled(m.FeatureFlag) {
			out.Migrations = append(out.Migrations, m)
		}
	}
	return out
}

// Baseline keeps only the descriptors no feature flag gates. It is what
// every flag combination has in common.
func (s Set) Baseline() Set {
	return s.Filter(func(string) bool { return false })
}

// Merge appends other to s. Entities keep their order (s first). Migrations
// are sorted by version; a repeated version is an error.
func (s Set) Merge(other Set) (Set, error) {
	out := Set{
		Entities:   make([]Entity, 0, len(s.Entities)+len(other.Entities)),
		Migrations: make([]Migration, 0, len(s.Migrations)+len(other.Migrations)),
	}
	out.Entities = append(out.Entities, s.Entities...)
	out.Entities = append(out.Entities, other.Entities...)
	out.Migrations = append(out.Migrations, s.Migrations...)
	out.Migrations = append(out.Migrations, other.Migrations...)

	if err := out.Sort(); err != nil {
		return Set{}, err
	}
	return out, nil
}

// Sort orders migrations by version and rejects duplicates.
func (s Set) Sort() error {
	sort.SliceStable(s.Migrations, func(i, j int) bool {
		return s.Migrations[i].Version < s.Migrations[j].Version
	})
	for i := 1; i < len(s.Migrations); i++ {
		if s.Migrations[i].Version == s.Migrations[i-1].Version {
			return fmt.Errorf("%w: %d (%s, %s)", ErrDuplicateVersion,
				s.Migrations[i].Version, s.Migrations[i-1].Name, s.Migrations[i].Name)
		}
	}
	return nil
}

// Tables returns entity table names in metadata order.
func (s Set) Tables() []string {
	tables := make([]string, 0, len(s.Entities))
	for _, e := range s.Entities {
		tables = append(tables, e.Table)
	}
	return tables
}

// Versions returns migration versions in order.
func (s Set) Versions() []int64 {
	versions := make([]int64, 0, len(s.Migrations))
	for _, m := range s.Migrations {
		versions = append(versions, m.Version)
	}
	return versions
}

// Static is a Registry backed by fixed slices.
type Static struct {
	EntityList    []Entity
	MigrationList []Migration
}

func (s Static) Entities() []Entity      { return s.EntityList }
func (s Static) Migrations() []Migration { return s.MigrationList }
