package classify

import (
	"log/slog"

	"filesorter/internal/config"
	"filesorter/internal/logging"
	"filesorter/internal/services/backend"
)

// NewProvider picks the provider for the configured classifier mode. client
// is nil when no service is configured, in which case local rules are used
// regardless of mode.
func NewProvider(cfg *config.Config, client *backend.Client, local *Local, logger *slog.Logger) Provider {
	if client == nil || cfg == nil || cfg.Classifier.Mode == config.ModeLocal {
		return local
	}
	remote := NewRemote(client)
	if cfg.Classifier.Mode == config.ModeRemote {
		return remote
	}
	return &Fallback{Primary: remote, Secondary: local, Logger: logging.NewComponentLogger(logger, "classifier")}
}
