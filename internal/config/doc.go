// Package config loads, normalizes, and validates filesorter configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FILESORTER_TOKEN. The Config type centralizes every knob the daemon and CLI
// need: watched folders, the classification service endpoint, local rules,
// notification and control API settings.
//
// The engine receives the loaded Config as an immutable snapshot. Changing the
// watched folder list requires restarting the watcher.
package config
