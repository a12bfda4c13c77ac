package influx

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Connect(context.Background()))
}

func TestServerURL(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.protocol", "https")
	viper.Set("influx.host", "metrics.local")
	viper.Set("influx.port", "8086")

	assert.Equal(t, "https://metrics.local:8086", ServerURL())
}

func TestUnreachableServerUsesBackup(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1")

	var logs bytes.Buffer
	backup := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.New(&logs), backup)
	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	assert.Contains(t, logs.String(), "backup")

	at := time.Unix(1700000000, 0)
	point := NewStatusPoint("s1", "take.sdam", 1500, 3000, true, false, 1.5, at)
	require.NoError(t, m.WritePoint(context.Background(), StatusBucket, point))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := string(data)
	assert.Contains(t, line, "session_status,")
	assert.Contains(t, line, "session=s1")
	assert.Contains(t, line, "position=1500i")
	assert.Contains(t, line, "recording=true")
	assert.Contains(t, line, "1700000000000000000")
}

func TestUnreachableServerWithoutBackup(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1")

	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Connect(context.Background()))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.WritePoint(context.Background(), StatusBucket, NewStatusPoint("s", "d", 0, 0, false, false, 1, time.Now()))
	assert.Error(t, err)
	assert.NoError(t, m.Close())
}
