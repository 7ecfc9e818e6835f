package commerce

const (
	currencyDDL = `CREATE TABLE IF NOT EXISTS currency (
	code        TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	name        TEXT NOT NULL
)`

	storeDDL = `CREATE TABLE IF NOT EXISTS store (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL DEFAULT 'Commerce Store',
	default_currency_code TEXT NOT NULL REFERENCES currency (code),
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	regionDDL = `CREATE TABLE IF NOT EXISTS region (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	currency_code TEXT NOT NULL REFERENCES currency (code),
	tax_rate      NUMERIC NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at    TIMESTAMPTZ
)`

	countryDDL = `CREATE TABLE IF NOT EXISTS country (
	id        SERIAL PRIMARY KEY,
	iso_2     TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	region_id TEXT REFERENCES region (id)
)`

	userDDL = `CREATE TABLE IF NOT EXISTS "user" (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	role          TEXT NOT NULL DEFAULT 'member',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	stagedJobDDL = `CREATE TABLE IF NOT EXISTS staged_job (
	id         TEXT PRIMARY KEY,
	event_name TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'
)`

	shippingProfileDDL = `CREATE TABLE IF NOT EXISTS shipping_profile (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL
)`

	fulfillmentProviderDDL = `CREATE TABLE IF NOT EXISTS fulfillment_provider (
	id           TEXT PRIMARY KEY,
	is_installed BOOLEAN NOT NULL DEFAULT true
)`

	paymentProviderDDL = `CREATE TABLE IF NOT EXISTS payment_provider (
	id           TEXT PRIMARY KEY,
	is_installed BOOLEAN NOT NULL DEFAULT true
)`

	salesChannelDDL = `CREATE TABLE IF NOT EXISTS sales_channel (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	is_disabled BOOLEAN NOT NULL DEFAULT false
)`

	publishableAPIKeyDDL = `CREATE TABLE IF NOT EXISTS publishable_api_key (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_by TEXT,
	revoked_at TIMESTAMPTZ
)`
)

// Seed rows shipped with the initial migration. They live in retained tables
// and so survive teardown.
const seedSQL = `
INSERT INTO currency (code, symbol, name) VALUES
	('usd', '$', 'US Dollar'),
	('eur', '€', 'Euro'),
	('dkk', 'kr', 'Danish Krone')
ON CONFLICT DO NOTHING;
INSERT INTO country (iso_2, name) VALUES
	('us', 'United States'),
	('dk', 'Denmark'),
	('de', 'Germany')
ON CONFLICT DO NOTHING;
INSERT INTO store (id, default_currency_code) VALUES ('store_default', 'usd')
ON CONFLICT DO NOTHING;
INSERT INTO shipping_profile (id, name, type) VALUES
	('sp_default', 'Default Shipping Profile', 'default'),
	('sp_gift_card', 'Gift Card Profile', 'gift_card')
ON CONFLICT DO NOTHING;
INSERT INTO fulfillment_provider (id) VALUES ('manual') ON CONFLICT DO NOTHING;
INSERT INTO payment_provider (id) VALUES ('manual') ON CONFLICT DO NOTHING`
