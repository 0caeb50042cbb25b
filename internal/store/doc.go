// Package store persists filesorter state in SQLite.
//
// Three tables back the daemon: the append-only action history shown by
// `filesorter history` and used to seed the daily counter, the pending queue
// of action records the classification service has not acknowledged yet, and
// the cached copy of the user's rules for offline classification. All writes
// retry on SQLITE_BUSY so the CLI and daemon can share the database.
package store
