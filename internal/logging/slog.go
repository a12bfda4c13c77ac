package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Options configures SlogManager.Setup.
type Options struct {
	// File receives text records. When nil, records go to stderr instead.
	File  io.Writer
	Level string
	// Provider enables the OTel bridge when non-nil.
	Provider *sdklog.LoggerProvider
	// ServiceName names the OTel instrumentation scope.
	ServiceName string
	// Sinks each receive JSON records (e.g. a GELF writer).
	Sinks []io.Writer
	// Context adds dynamic attributes to every record.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the handler chain. The console is used only when no file is given,
// so an interactive shell is not interleaved with log lines.
func (m *SlogManager) Setup(opts Options) {
	lvl := parseLevel(opts.Level)
	m.logProvider = opts.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, handlerOpts))
	}

	for _, sink := range opts.Sinks {
		if sink != nil {
			handlers = append(handlers, slog.NewJSONHandler(sink, handlerOpts))
		}
	}

	if opts.Provider != nil {
		name := opts.ServiceName
		if name == "" {
			name = "sdam"
		}
		handlers = append(handlers, otelslog.NewHandler(name, otelslog.WithLoggerProvider(opts.Provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		handler = NewContextHandler(handler, opts.Context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry tagged with the calling component.
func (m *SlogManager) WriteLog(component, data, level string) {
	if m.logger == nil {
		return
	}

	switch parseLevel(level) {
	case slog.LevelDebug:
		m.logger.Debug(data, "component", component)
	case slog.LevelWarn:
		m.logger.Warn(data, "component", component)
	case slog.LevelError:
		m.logger.Error(data, "component", component)
	default:
		m.logger.Info(data, "component", component)
	}
}
