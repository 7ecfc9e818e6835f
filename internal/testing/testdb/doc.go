// Package testdb provides test database utilities for the commerce backend.
//
// The testdb package owns one ephemeral Postgres database per test run:
// it is cloned from a template, migrated for the feature flags in effect,
// emptied between tests and dropped at the end.
//
// # Lifecycle
//
// A Manager goes through initialize, any number of clear/teardown calls, and
// shutdown:
//
//	m := testdb.NewManager(testdb.Options{Logger: logger})
//	db, err := m.Initialize(ctx, testdb.InitOptions{WorkDir: cwd})
//	...
//	err = m.Teardown(ctx, testdb.TeardownOptions{})
//	...
//	err = m.Shutdown(ctx)
//
// Every operation other than Initialize fails with ErrNoConnection before
// Initialize succeeded and after Shutdown.
//
// # Migration Plans
//
// When isolate_pricing_domain or isolate_product_domain is on, an auxiliary
// pool is opened and the module runner migrates the isolated domains. It is
// closed by Shutdown; without those flags there is no auxiliary pool.
//
// # Retained Tables
//
// Teardown keeps the rows of the retained tables (store, currency, country and
// the provider tables) unless they are named in ForceDelete:
//
//	tdb.Reset(t)              // keeps seed data
//	tdb.Reset(t, "currency")  // empties currency too
//
// # Environment Overrides
//
// InitOptions.Env is written into the process environment before the config
// is loaded and is not restored. Prefer t.Setenv in tests.
//
// # Test Helpers
//
//	tdb := testdb.New(t, testdb.InitOptions{}) // dropped on t.Cleanup
//	n := tdb.MustCount("region")
//
// # Templates
//
//	err := testdb.BuildTemplate(ctx, opts, init, testdb.TemplateOptions{})
package testdb
