// Package config loads the settings the test database lifecycle needs.
//
// Configuration comes from a commerce-config file in the working directory
// (yaml, toml or json) overlaid with environment variables. The file is
// optional; the environment and defaults are enough to reach a local Postgres.
//
// # Loading
//
//	cfg, err := config.Load(cwd)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Environment Variables
//
//	DB_HOST            - Postgres host (default: localhost)
//	DB_PORT            - Postgres port (default: 5432)
//	DB_USERNAME        - Application user (default: postgres)
//	DB_PASSWORD        - Application password (default: postgres)
//	DB_TEMP_NAME       - Ephemeral test database (default: commerce_test)
//	DB_TEMPLATE_NAME   - Template cloned for every run (default: commerce_template)
//	DB_ADMIN_USERNAME  - Admin user for create/drop (default: DB_USERNAME)
//	DB_ADMIN_PASSWORD  - Admin password (default: DB_PASSWORD)
//	DB_ADMIN_DATABASE  - Maintenance database for admin statements (default: postgres)
//
// # File Only Settings
//
//	feature_flags:
//	  isolate_pricing_domain: true
//	modules:
//	  product:
//	    disabled: true
package config
