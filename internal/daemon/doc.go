// Package daemon runs the long-lived filesorter process.
//
// It holds an flock-based single-instance lock, starts the engine on the
// configured folders, keeps local rules in sync with the classification
// service, flushes audit records that could not be delivered, and serves the
// control API used by the CLI.
//
// Keep pipeline logic in the engine; the daemon only owns startup, shutdown
// and the background loops around it.
package daemon
