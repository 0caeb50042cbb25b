// Package services defines shared utilities consumed by the sorting pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp file paths, pipeline stages, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     provider outage from a failed move or an audit hiccup with errors.Is.
//
// Subpackages hold the HTTP clients for remote collaborators.
package services
