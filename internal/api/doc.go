// Package api defines the wire types of the daemon control API and a small
// HTTP client the CLI uses to talk to a running daemon.
//
// DTOs use camelCase JSON tags. Timestamps are RFC3339 with milliseconds.
// Endpoints:
//
//	GET  /api/status        DaemonStatus
//	POST /api/pause         PauseResponse
//	POST /api/resume        PauseResponse
//	GET  /api/history       HistoryResponse (?limit=N)
//	POST /api/rules/sync    RuleSyncResponse
//
// When the daemon is started with api.token set every request needs
// "Authorization: Bearer <token>".
package api
