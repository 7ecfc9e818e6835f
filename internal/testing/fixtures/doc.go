// Package fixtures provides test data factories for the commerce schema.
//
// # Factory Pattern
//
// Create a factory over the test database:
//
//	f := fixtures.New(tdb.DB)
//
// # Creating Test Data
//
//	region := f.CreateRegion(t)                        // usd region
//	region := f.CreateRegion(t, fixtures.WithCurrency("eur"))
//	f.AssignCountry(t, "dk", region)                   // seeded country
//	user := f.CreateUser(t)                            // bcrypt hashed password
//
// Flag-gated and module tables only exist when the matching migration ran:
//
//	f.CreateSalesChannel(t, "web")  // sales_channels
//	f.CreatePriceSet(t, "usd", 100) // pricing module
//
// # Cleanup
//
// Rows created here are removed by the next testdb teardown, except in
// retained tables such as currency and country.
package fixtures
