// Package logging sets up the editor's loggers: slog for the application and
// zerolog for the database layer and the command dispatcher.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// timestampLayout names log files by session start.
const timestampLayout = "20060102_150405"

// LogFilePath returns <logsDir>/<appName>.<start>.log.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", appName, sessionStart.Format(timestampLayout)))
}

// OpenLogFile creates logsDir if needed and opens the session log for appending. A file
// already at that path, left by a run started in the same second, is moved to
// <path>.old first.
func OpenLogFile(logsDir, appName string, sessionStart time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating logs directory: %w", err)
	}

	path := LogFilePath(logsDir, appName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, path, fmt.Errorf("moving previous log aside: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, path, fmt.Errorf("opening log file: %w", err)
	}
	return f, path, nil
}
