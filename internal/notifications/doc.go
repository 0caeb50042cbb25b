// Package notifications pushes operator alerts for sorted files.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled or no
// topic is set. Callers depend only on the Service interface and are expected
// to ignore delivery errors.
package notifications
