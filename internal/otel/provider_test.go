package otel

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutExporter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "sdam"})
	assert.True(t, errors.Is(err, ErrNoExporter))
}

func TestNew_EnabledWithWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "sdam-test",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	logger := p.LoggerProvider().Logger("test")
	var rec log.Record
	rec.SetBody(log.StringValue("mark added"))
	logger.Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "mark added")
	assert.Contains(t, buf.String(), "sdam-test")
}
