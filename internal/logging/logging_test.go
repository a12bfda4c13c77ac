package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "sdamlogs",
			want:    filepath.Join("sdamlogs", "sdam.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./sdamlogs",
			want:    filepath.Join(".", "sdamlogs", "sdam.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "sdam"),
			want:    filepath.Join("/var", "log", "sdam", "sdam.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "sdam", sessionStart))
		})
	}
}

func TestOpenLogFileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	f, err := OpenLogFile(dir, "sdam", start, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, f.MaxSize)
	_, err = f.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(LogFilePath(dir, "sdam", start))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
