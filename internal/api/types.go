package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EngineStatus summarizes the watcher pipeline.
type EngineStatus struct {
	Running    bool     `json:"running"`
	Paused     bool     `json:"paused"`
	Folders    []string `json:"folders"`
	RunID      string   `json:"runId,omitempty"`
	FilesToday int      `json:"filesToday"`
	Processed  int      `json:"processed"`
	LastFile   string   `json:"lastFile,omitempty"`
	LastError  string   `json:"lastError,omitempty"`
}

// FolderStatus reports whether a watched folder is usable.
type FolderStatus struct {
	Path     string `json:"path"`
	Exists   bool   `json:"exists"`
	Writable bool   `json:"writable"`
}

// DaemonStatus is the payload of GET /api/status.
type DaemonStatus struct {
	Running           bool           `json:"running"`
	PID               int            `json:"pid"`
	Mode              string         `json:"mode"`
	RemoteEnabled     bool           `json:"remoteEnabled"`
	DatabasePath      string         `json:"databasePath"`
	LockFilePath      string         `json:"lockFilePath"`
	LogPath           string         `json:"logPath,omitempty"`
	PendingActions    int            `json:"pendingActions"`
	RuleCount         int            `json:"ruleCount"`
	RuleSource        string         `json:"ruleSource"`
	LastRuleSync      string         `json:"lastRuleSync,omitempty"`
	LastRuleSyncError string         `json:"lastRuleSyncError,omitempty"`
	Engine            EngineStatus   `json:"engine"`
	Folders           []FolderStatus `json:"folderHealth"`
}

// Action is one entry of the move history.
type Action struct {
	ID         string  `json:"id"`
	Filename   string  `json:"filename"`
	SourcePath string  `json:"sourcePath"`
	DestPath   string  `json:"destPath"`
	Category   string  `json:"category"`
	RuleID     string  `json:"ruleId,omitempty"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Timestamp  string  `json:"timestamp"`
}

// HistoryResponse is the payload of GET /api/history.
type HistoryResponse struct {
	Actions []Action `json:"actions"`
}

// PauseResponse reports the pause state after a toggle.
type PauseResponse struct {
	Paused bool `json:"paused"`
}

// RuleSyncResponse reports the outcome of a rule sync.
type RuleSyncResponse struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
