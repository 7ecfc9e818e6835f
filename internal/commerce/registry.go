// Package commerce is the host application's registry: the core entities and
// migrations the test database lifecycle provisions, and the tables whose
// rows survive teardown.
package commerce

import (
	"strings"

	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

// RetainedTables hold seed and reference data kept between tests.
var RetainedTables = []string{
	"store",
	"staged_job",
	"shipping_profile",
	"fulfillment_provider",
	"payment_provider",
	"country",
	"currency",
}

// Registry implements registry.Registry for the core application.
type Registry struct{}

var _ registry.Registry = Registry{}

// Entities returns the core entities in metadata order. Referenced tables
// come before the tables referencing them.
func (Registry) Entities() []registry.Entity {
	return []registry.Entity{
		{Name: "Currency", Table: "currency", DDL: currencyDDL},
		{Name: "Store", Table: "store", DDL: storeDDL},
		{Name: "Region", Table: "region", DDL: regionDDL},
		{Name: "Country", Table: "country", DDL: countryDDL},
		{Name: "User", Table: "user", DDL: userDDL},
		{Name: "StagedJob", Table: "staged_job", DDL: stagedJobDDL},
		{Name: "ShippingProfile", Table: "shipping_profile", DDL: shippingProfileDDL},
		{Name: "FulfillmentProvider", Table: "fulfillment_provider", DDL: fulfillmentProviderDDL},
		{Name: "PaymentProvider", Table: "payment_provider", DDL: paymentProviderDDL},
		{Name: "SalesChannel", Table: "sales_channel", FeatureFlag: featureflag.SalesChannels.Key, DDL: salesChannelDDL},
		{Name: "PublishableApiKey", Table: "publishable_api_key", FeatureFlag: featureflag.PublishableAPIKeys.Key, DDL: publishableAPIKeyDDL},
	}
}

// Migrations returns the core migrations in version order.
func (Registry) Migrations() []registry.Migration {
	return []registry.Migration{
		{
			Version: 1700000000001,
			Name:    "initial_schema",
			Up: strings.Join([]string{
				currencyDDL,
				storeDDL,
				initialRegionDDL,
				countryDDL,
				userDDL,
				stagedJobDDL,
				shippingProfileDDL,
				fulfillmentProviderDDL,
				paymentProviderDDL,
				seedSQL,
			}, ";\n"),
			Down: `DROP TABLE IF EXISTS payment_provider, fulfillment_provider, shipping_profile,
				staged_job, "user", country, region, store, currency`,
		},
		{
			Version: 1700000000002,
			Name:    "region_tax_rate",
			Up:      "ALTER TABLE region ADD COLUMN IF NOT EXISTS tax_rate NUMERIC NOT NULL DEFAULT 0",
			Down:    "ALTER TABLE region DROP COLUMN IF EXISTS tax_rate",
		},
		{
			Version:     1700000000003,
			Name:        "sales_channels",
			FeatureFlag: featureflag.SalesChannels.Key,
			Up:          salesChannelDDL,
			Down:        "DROP TABLE IF EXISTS sales_channel",
		},
		{
			Version:     1700000000004,
			Name:        "publishable_api_keys",
			FeatureFlag: featureflag.PublishableAPIKeys.Key,
			Up:          publishableAPIKeyDDL,
			Down:        "DROP TABLE IF EXISTS publishable_api_key",
		},
	}
}

// initialRegionDDL is region as created by the first migration, before
// region_tax_rate added its tax column.
const initialRegionDDL = `CREATE TABLE IF NOT EXISTS region (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	currency_code TEXT NOT NULL REFERENCES currency (code),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at    TIMESTAMPTZ
)`
