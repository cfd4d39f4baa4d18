// Package app is the composition root for dailystrip.
//
// # Overview
//
// Run wires configuration, preferences, the strip client, the poller and
// its listeners, then hands control to the viewer or waits in headless mode:
//
//  1. Load config (TOML or YAML) and prefs
//  2. Build the disclaimer gate from both; --acknowledge-disclaimer opens it
//  3. Build the slog logger (log file under the viewer, stderr otherwise)
//  4. Create the fetch.Client and poller.Poller
//  5. Subscribe the archive when archive_dir is set
//  6. Serve the HTTP API when api_bind is set
//  7. Refresh once, then arm the configured schedule
//  8. Run the viewer, or log events until the context is cancelled
//
// The poller is closed on every exit path, so no fetch outlives Run.
//
// # One-shot Mode
//
// With Options.Once, Run forces a single download, waits for it, and
// returns its error. Listeners such as the archive still see the result.
package app
