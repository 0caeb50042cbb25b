package config

// Classifier modes.
const (
	ModeAuto   = "auto"
	ModeRemote = "remote"
	ModeLocal  = "local"
)

const (
	defaultConfigPath                = "~/.config/filesorter/config.toml"
	defaultStateDir                  = "~/.local/share/filesorter"
	defaultLogDir                    = "~/.local/share/filesorter/logs"
	defaultWatchFolder               = "~/Downloads"
	defaultSettleDelaySeconds        = 3
	defaultQueueCapacity             = 100
	defaultServiceURL                = "http://localhost:8085"
	defaultDashboardURL              = "http://localhost:3000"
	defaultServiceTimeoutSeconds     = 15
	defaultRequestsPerMinute         = 120
	defaultRulesSyncIntervalSeconds  = 300
	defaultNotifyRequestTimeout      = 10
	defaultAPIBind                   = "127.0.0.1:7488"
	defaultAuditFlushIntervalSeconds = 60
	defaultAuditFlushBatchSize       = 50
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Watch: Watch{
			Folders:            []string{defaultWatchFolder},
			SettleDelaySeconds: defaultSettleDelaySeconds,
			QueueCapacity:      defaultQueueCapacity,
		},
		Service: Service{
			URL:                      defaultServiceURL,
			DashboardURL:             defaultDashboardURL,
			TimeoutSeconds:           defaultServiceTimeoutSeconds,
			RequestsPerMinute:        defaultRequestsPerMinute,
			RulesSyncIntervalSeconds: defaultRulesSyncIntervalSeconds,
		},
		Classifier: Classifier{
			Mode: ModeAuto,
		},
		Notifications: Notifications{
			Enabled:        true,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Audit: Audit{
			FlushIntervalSeconds: defaultAuditFlushIntervalSeconds,
			FlushBatchSize:       defaultAuditFlushBatchSize,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
