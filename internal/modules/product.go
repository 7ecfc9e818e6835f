package modules

import (
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

const (
	productDDL = `CREATE TABLE IF NOT EXISTS product (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	handle     TEXT UNIQUE,
	status     TEXT NOT NULL DEFAULT 'draft',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	productOptionDDL = `CREATE TABLE IF NOT EXISTS product_option (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES product (id) ON DELETE CASCADE,
	title      TEXT NOT NULL
)`

	productVariantDDL = `CREATE TABLE IF NOT EXISTS product_variant (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES product (id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	sku        TEXT UNIQUE
)`
)

// Product is the product module.
func Product() Module {
	return Module{
		Name:          "product",
		Version:       "1.4.1",
		IsolationFlag: featureflag.IsolateProductDomain.Key,
		Resources: registry.Set{
			Entities: []registry.Entity{
				{Name: "Product", Table: "product", DDL: productDDL},
				{Name: "ProductOption", Table: "product_option", DDL: productOptionDDL},
				{Name: "ProductVariant", Table: "product_variant", DDL: productVariantDDL},
			},
			Migrations: []registry.Migration{
				{
					Version: 1720000000001,
					Name:    "product_initial",
					Up:      productDDL + ";\n" + productOptionDDL + ";\n" + productVariantDDL,
					Down:    "DROP TABLE IF EXISTS product_variant; DROP TABLE IF EXISTS product_option; DROP TABLE IF EXISTS product",
				},
			},
		},
	}
}
