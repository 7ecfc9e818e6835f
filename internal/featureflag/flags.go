// Package featureflag evaluates the feature flags that gate entities,
// migrations and the isolated-domain migration path.
package featureflag

import (
	"sort"
	"strconv"
	"strings"
)

// EnvPrefix prefixes the environment override of every flag.
const EnvPrefix = "COMMERCE_FF_"

// Flag describes a single feature flag.
type Flag struct {
	Key         string
	Description string
	Default     bool
}

// EnvKey is the environment variable that overrides the flag.
func (f Flag) EnvKey() string {
	return EnvPrefix + strings.ToUpper(f.Key)
}

// Known flags.
var (
	IsolatePricingDomain = Flag{
		Key:         "isolate_pricing_domain",
		Description: "Pricing is served by the pricing module with its own schema lifecycle",
	}
	IsolateProductDomain = Flag{
		Key:         "isolate_product_domain",
		Description: "Products are served by the product module with its own schema lifecycle",
	}
	SalesChannels = Flag{
		Key:         "sales_channels",
		Description: "Sales channels and their product assignments",
	}
	PublishableAPIKeys = Flag{
		Key:         "publishable_api_keys",
		Description: "Publishable API keys scoping store requests to sales channels",
	}
)

// Definitions returns every known flag.
func Definitions() []Flag {
	return []Flag{IsolatePricingDomain, IsolateProductDomain, SalesChannels, PublishableAPIKeys}
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Router answers whether a flag is enabled.
type Router struct {
	flags map[string]bool
}

// NewRouter creates a router with the given flag values.
func NewRouter(values map[string]bool) *Router {
	flags := make(map[string]bool, len(values))
	for k, v := range values {
		flags[k] = v
	}
	return &Router{flags: flags}
}

// Load evaluates every definition. Precedence per flag is the environment
// override, then the configured value, then the flag default. Unparseable
// environment values are ignored.
func Load(configured map[string]bool, defs []Flag, lookup LookupFunc) *Router {
	flags := make(map[string]bool, len(defs))
	for _, def := range defs {
		value := def.Default
		if v, ok := configured[def.Key]; ok {
			value = v
		}
		if lookup != nil {
			if raw, ok := lookup(def.EnvKey()); ok && raw != "" {
				if b, err := strconv.ParseBool(raw); err == nil {
					value = b
				}
			}
		}
		flags[def.Key] = value
	}
	return &Router{flags: flags}
}

// IsFeatureEnabled reports whether key is on. Unknown keys are off.
func (r *Router) IsFeatureEnabled(key string) bool {
	if r == nil {
		return false
	}
	return r.flags[key]
}

// SetFlag overrides a single flag.
func (r *Router) SetFlag(key string, enabled bool) {
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	r.flags[key] = enabled
}

// Enabled returns the sorted keys of all enabled flags.
func (r *Router) Enabled() []string {
	var keys []string
	for k, v := range r.flags {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of every evaluated flag.
func (r *Router) Values() map[string]bool {
	out := make(map[string]bool, len(r.flags))
	for k, v := range r.flags {
		out[k] = v
	}
	return out
}
