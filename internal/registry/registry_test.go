package registry

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlyFlags(keys ...string) FlagFunc {
	on := make(map[string]bool, len(keys))
	for _, k := range keys {
		on[k] = true
	}
	return func(key string) bool { return on[key] }
}

func sampleSet() Set {
	return FromRegistry(Static{
		EntityList: []Entity{
			{Name: "Store", Table: "store"},
			{Name: "SalesChannel", Table: "sales_channel", FeatureFlag: "sales_channels"},
			{Name: "Region", Table: "region"},
		},
		MigrationList: []Migration{
			{Version: 1, Name: "initial"},
			{Version: 2, Name: "sales_channels", FeatureFlag: "sales_channels"},
			{Version: 3, Name: "region_tax"},
		},
	})
}

func TestSet_FilterDisabled(t *testing.T) {
	got := sampleSet().Filter(onlyFlags())

	assert.Equal(t, []string{"store", "region"}, got.Tables())
	assert.Equal(t, []int64{1, 3}, got.Versions())
}

func TestSet_FilterEnabled(t *testing.T) {
	got := sampleSet().Filter(onlyFlags("sales_channels"))

	assert.Equal(t, []string{"store", "sales_channel", "region"}, got.Tables())
	assert.Equal(t, []int64{1, 2, 3}, got.Versions())
}

func TestSet_BaselineIgnoresFlags(t *testing.T) {
	got := sampleSet().Baseline()

	assert.Equal(t, []string{"store", "region"}, got.Tables())
	assert.Equal(t, []int64{1, 3}, got.Versions())
}

func TestSet_MergeSortsByVersion(t *testing.T) {
	base := Set{Migrations: []Migration{{Version: 10, Name: "a"}, {Version: 30, Name: "c"}}}
	module := Set{
		Entities:   []Entity{{Name: "PriceSet", Table: "price_set"}},
		Migrations: []Migration{{Version: 20, Name: "b"}},
	}

	merged, err := base.Merge(module)
	require.NoError(t, err)

	if diff := cmp.Diff([]int64{10, 20, 30}, merged.Versions()); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"price_set"}, merged.Tables())
	// Inputs are untouched.
	assert.Equal(t, []int64{10, 30}, base.Versions())
}

func TestSet_MergeDuplicateVersion(t *testing.T) {
	base := Set{Migrations: []Migration{{Version: 7, Name: "core"}}}
	module := Set{Migrations: []Migration{{Version: 7, Name: "module"}}}

	_, err := base.Merge(module)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateVersion))
	assert.Contains(t, err.Error(), "core")
	assert.Contains(t, err.Error(), "module")
}

func TestFromRegistry_Copies(t *testing.T) {
	reg := Static{EntityList: []Entity{{Table: "store"}}}
	set := FromRegistry(reg)
	set.Entities[0].Table = "changed"

	assert.Equal(t, "store", reg.EntityList[0].Table)
}
