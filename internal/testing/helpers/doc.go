// Package helpers provides database assertions for commerce integration tests.
//
// # Schema Helpers
//
//	helpers.AssertTableExists(t, tdb.DB, "region")
//	helpers.AssertTableNotExists(t, tdb.DB, "sales_channel")
//	ok := helpers.ColumnExists(t, tdb.DB, "region", "tax_rate")
//
// # Row Helpers
//
//	helpers.AssertRowCount(t, tdb.DB, "currency", 3)
//	helpers.AssertRecordNotExists(t, tdb.DB, "region", region.ID)
//
// # Pointer Helpers
//
//	name := helpers.StringPtr("test")
package helpers
