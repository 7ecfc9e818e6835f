package modules

import (
	"github.com/forgo/commerce/internal/featureflag"
	"github.com/forgo/commerce/internal/registry"
)

const (
	priceSetDDL = `CREATE TABLE IF NOT EXISTS price_set (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	moneyAmountDDL = `CREATE TABLE IF NOT EXISTS money_amount (
	id            TEXT PRIMARY KEY,
	price_set_id  TEXT NOT NULL REFERENCES price_set (id) ON DELETE CASCADE,
	currency_code TEXT NOT NULL,
	amount        NUMERIC NOT NULL,
	min_quantity  INTEGER,
	max_quantity  INTEGER
)`

	priceRuleDDL = `CREATE TABLE IF NOT EXISTS price_rule (
	id           TEXT PRIMARY KEY,
	price_set_id TEXT NOT NULL REFERENCES price_set (id) ON DELETE CASCADE,
	attribute    TEXT NOT NULL,
	value        TEXT NOT NULL,
	priority     INTEGER NOT NULL DEFAULT 0
)`
)

// Pricing is the pricing module.
func Pricing() Module {
	return Module{
		Name:          "pricing",
		Version:       "1.2.0",
		IsolationFlag: featureflag.IsolatePricingDomain.Key,
		Resources: registry.Set{
			Entities: []registry.Entity{
				{Name: "PriceSet", Table: "price_set", DDL: priceSetDDL},
				{Name: "MoneyAmount", Table: "money_amount", DDL: moneyAmountDDL},
				{Name: "PriceRule", Table: "price_rule", DDL: priceRuleDDL},
			},
			Migrations: []registry.Migration{
				{
					Version: 1710000000001,
					Name:    "pricing_initial",
					Up:      priceSetDDL + ";\n" + moneyAmountDDL,
					Down:    "DROP TABLE IF EXISTS money_amount; DROP TABLE IF EXISTS price_set",
				},
				{
					Version: 1710000000002,
					Name:    "pricing_rules",
					Up:      priceRuleDDL,
					Down:    "DROP TABLE IF EXISTS price_rule",
				},
			},
		},
	}
}
