package api

import (
	"time"

	"filesorter/internal/audit"
	"filesorter/internal/engine"
)

// FromRecord converts an audit record.
func FromRecord(record audit.Record) Action {
	return Action{
		ID:         record.ID,
		Filename:   record.Filename,
		SourcePath: record.SourcePath,
		DestPath:   record.DestPath,
		Category:   record.Category,
		RuleID:     record.RuleID,
		Confidence: record.Confidence,
		Method:     record.Method,
		Timestamp:  FormatTime(record.Timestamp),
	}
}

// FromRecords converts a slice of records, preserving order.
func FromRecords(records []audit.Record) []Action {
	out := make([]Action, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out
}

// FromEngineStatus converts the engine view.
func FromEngineStatus(status engine.Status) EngineStatus {
	folders := status.Folders
	if folders == nil {
		folders = []string{}
	}
	return EngineStatus{
		Running:    status.Running,
		Paused:     status.Paused,
		Folders:    folders,
		RunID:      status.RunID,
		FilesToday: status.FilesToday,
		Processed:  status.Processed,
		LastFile:   status.LastFile,
		LastError:  status.LastError,
	}
}

// FormatTime renders t for API payloads. The zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateTimeFormat, value)
}
