package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"filesorter/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// daemonLines summarizes the daemon and engine state.
func daemonLines(status api.DaemonStatus, colorize bool) []string {
	lines := make([]string, 0, 8)

	switch {
	case !status.Engine.Running:
		lines = append(lines, renderStatusLine("Watcher", statusError, "stopped", colorize))
	case status.Engine.Paused:
		lines = append(lines, renderStatusLine("Watcher", statusWarn, "paused", colorize))
	default:
		lines = append(lines, renderStatusLine("Watcher", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	}

	classifier := status.Mode
	if status.RemoteEnabled {
		classifier += ", service configured"
	} else {
		classifier += ", offline"
	}
	lines = append(lines, renderStatusLine("Classifier", statusInfo, classifier, colorize))

	rules := fmt.Sprintf("%d from %s", status.RuleCount, status.RuleSource)
	if status.LastRuleSync != "" {
		rules += ", synced " + formatTimestamp(status.LastRuleSync)
	}
	if status.LastRuleSyncError != "" {
		lines = append(lines, renderStatusLine("Rules", statusWarn, rules+" (last sync failed: "+status.LastRuleSyncError+")", colorize))
	} else {
		lines = append(lines, renderStatusLine("Rules", statusInfo, rules, colorize))
	}

	pendingKind := statusOK
	if status.PendingActions > 0 {
		pendingKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Pending uploads", pendingKind, fmt.Sprintf("%d", status.PendingActions), colorize))
	lines = append(lines, renderStatusLine("Files today", statusInfo, fmt.Sprintf("%d", status.Engine.FilesToday), colorize))
	if status.Engine.LastFile != "" {
		lines = append(lines, renderStatusLine("Last file", statusInfo, status.Engine.LastFile, colorize))
	}
	if status.Engine.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, status.Engine.LastError, colorize))
	}
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	return lines
}

// folderLines reports each watched folder's health.
func folderLines(folders []api.FolderStatus, colorize bool) []string {
	lines := make([]string, 0, len(folders))
	for _, folder := range folders {
		switch {
		case !folder.Exists:
			lines = append(lines, renderStatusLine(folder.Path, statusError, "missing", colorize))
		case !folder.Writable:
			lines = append(lines, renderStatusLine(folder.Path, statusWarn, "not writable", colorize))
		default:
			lines = append(lines, renderStatusLine(folder.Path, statusOK, "watching", colorize))
		}
	}
	return lines
}

func formatTimestamp(value string) string {
	parsed, err := api.ParseTime(value)
	if err != nil || parsed.IsZero() {
		return value
	}
	return parsed.Local().Format(time.DateTime)
}
