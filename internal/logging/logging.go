package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFilePath builds <logsDir>/<name>.<yyyymmdd_hhmmss>.log.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// OpenLogFile creates the logs directory if needed and returns a size-capped
// writer for the session log. Rotated files are gzip-compressed.
func OpenLogFile(logsDir, name string, sessionStart time.Time, maxSizeMB int) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	return &lumberjack.Logger{
		Filename:   LogFilePath(logsDir, name, sessionStart),
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}, nil
}
