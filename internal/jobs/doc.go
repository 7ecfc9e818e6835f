// Package jobs implements background maintenance for the test database
// server.
//
// # Reaper
//
// Test runs that crash before shutdown leave their database behind. The
// Reaper drops every database with a given prefix that no session is using:
//
//	reaper, err := jobs.NewReaper(admin, jobs.ReaperConfig{
//	    Prefix: "commerce_test",
//	    Keep:   []string{"commerce_template"},
//	}, logger)
//	dropped, err := reaper.RunOnce(ctx)
//
// or periodically:
//
//	reaper.Start()
//	defer reaper.Stop()
//
// # Error Handling
//
// A pass logs its errors and the loop keeps running. RunOnce returns them.
package jobs
