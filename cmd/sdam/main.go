// Command sdam is a line-oriented shell for recording audio, playing it back
// at variable rate and dropping categorized marks while doing so.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sdam-project/sdam/internal/api"
	"github.com/sdam-project/sdam/internal/config"
	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/document"
	"github.com/sdam-project/sdam/internal/handlers"
	"github.com/sdam-project/sdam/internal/influx"
	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/monitor"
	"github.com/sdam-project/sdam/internal/notify"
	intOtel "github.com/sdam-project/sdam/internal/otel"
	"github.com/sdam-project/sdam/internal/session"
	"github.com/sdam-project/sdam/internal/transport"
)

// module defs - Version and BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const appName = "sdam"

type options struct {
	ConfigDir string
	File      string
}

func main() {
	var opts options
	flag.StringVar(&opts.ConfigDir, "config", ".", "directory containing "+config.FileName)
	flag.StringVar(&opts.File, "file", "", "document to open on start")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything started for one session, in shutdown order.
type app struct {
	logManager *logging.SlogManager
	logFile    *lumberjack.Logger
	otel       *intOtel.Provider
	sinks      []io.Closer

	dispatcher *dispatcher.Dispatcher
	backend    interface{ Close() error }
	monitor    *monitor.Service
	influx     *influx.Manager
	toaster    *notify.Toaster

	engineCancel context.CancelFunc
	engineDone   sync.WaitGroup
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	sessionStart := time.Now()
	sessionCtx := logging.NewSessionContext(uuid.NewString())

	a := &app{logManager: logging.NewSlogManager()}
	defer a.shutdown()

	a.logManager.Setup(logging.Options{Level: "info", Context: sessionCtx.Attrs})
	if err := config.Load(opts.ConfigDir); err != nil {
		a.logManager.Logger().Warn("Failed to load config, using defaults!", "error", err)
	}

	a.setupLogging(sessionStart, sessionCtx)
	logger := a.logManager.Logger()
	logger.Info("Starting up...", "version", Version, "build", BuildDate)

	var dispatchOut io.Writer = io.Discard
	if a.logFile != nil {
		dispatchOut = a.logFile
	}
	dispatchLog := logging.NewDispatcherLogger(dispatchOut, viper.GetString("logLevel"))

	var err error
	a.dispatcher, err = dispatcher.New(dispatchLog)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	engine := transport.New(logger.With("component", "transport"))
	engineCtx, cancel := context.WithCancel(context.Background())
	a.engineCancel = cancel
	a.engineDone.Add(1)
	go func() {
		defer a.engineDone.Done()
		engine.Run(engineCtx)
	}()

	backend, err := initStorage(config.GetStorageConfig(), storageEnv{
		SessionID:    sessionCtx.ID(),
		SessionStart: sessionStart,
		LogsDir:      viper.GetString("logsDir"),
		LogManager:   a.logManager,
	})
	if err != nil {
		return err
	}
	a.backend = backend

	sessionCfg := config.GetSessionConfig()
	src := newLineSource(in)
	prompter := &consolePrompter{src: src, out: out}
	a.toaster = notify.New(out, logger.With("component", "notify"), sessionCfg.DesktopNotify)

	controller := session.New(session.Dependencies{
		Engine:   engine,
		Marks:    backend,
		Prompter: prompter,
		Notifier: a.toaster,
		Logger:   logger.With("component", "session"),
	})

	docs := document.NewService(document.Dependencies{
		Marks:    backend,
		Audio:    engine,
		Logger:   logger.With("component", "document"),
		OnChange: sessionCtx.SetDocument,
	})

	monitorCfg := config.GetMonitorConfig()
	monitorDeps := monitor.Dependencies{
		Engine:     engine,
		Rate:       engine.Rate,
		Session:    sessionCtx,
		Store:      backend,
		LogManager: a.logManager,
		StatusFile: monitorCfg.StatusFile,
		Interval:   monitorCfg.Interval,
	}
	if viper.GetBool("influx.enabled") {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_%s.influx.gz", appName, sessionStart.Format("20060102_150405")))
		mgr := influx.NewManager(dispatchLog.Zerolog(), backupPath)
		if err := mgr.Connect(ctx); err != nil {
			logger.Warn("InfluxDB unavailable, status points disabled", "error", err)
		} else {
			a.influx = mgr
			monitorDeps.Influx = mgr
		}
	}
	a.monitor = monitor.NewService(monitorDeps)
	if err := a.monitor.Start(ctx); err != nil {
		logger.Warn("Failed to start status monitor", "error", err)
	}

	handlerDeps := handlers.Dependencies{
		Controller:       controller,
		Marks:            backend,
		Documents:        docs,
		Monitor:          a.monitor,
		Prompter:         prompter,
		Notifier:         a.toaster,
		LogManager:       a.logManager,
		SessionID:        sessionCtx.ID(),
		SeekShortSeconds: sessionCfg.SeekShortSeconds,
		SeekLongSeconds:  sessionCfg.SeekLongSeconds,
	}
	if apiCfg := config.GetAPIConfig(); apiCfg.ServerURL != "" {
		client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
		handlerDeps.Uploader = client
		go checkServerStatus(ctx, client, logger)
	}
	handlers.NewService(handlerDeps).RegisterHandlers(a.dispatcher)
	logger.Info("Handlers registered", "count", len(a.dispatcher.Commands()))

	if opts.File != "" {
		if _, err := a.dispatcher.Dispatch(ctx, dispatcher.Event{
			Command: handlers.CmdDocumentLoad,
			Args:    []string{opts.File},
		}); err != nil {
			logger.Error("Failed to open document", "path", opts.File, "error", err)
		}
	}

	sh := &shell{dispatcher: a.dispatcher, src: src, out: out, logger: logger}
	sh.run(ctx)
	logger.Info("Shutting down")
	return nil
}

// checkServerStatus logs whether the document server answers.
func checkServerStatus(ctx context.Context, client *api.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Healthcheck(ctx); err != nil {
		logger.Warn("Document server is not reachable", "url", client.BaseURL(), "error", err)
		return
	}
	logger.Info("Document server is reachable", "url", client.BaseURL())
}

// setupLogging opens the session log file and rebuilds the handler chain
// with the file, the OTel bridge and the optional GELF sink.
func (a *app) setupLogging(sessionStart time.Time, sessionCtx *logging.SessionContext) {
	logger := a.logManager.Logger()

	var err error
	a.logFile, err = logging.OpenLogFile(viper.GetString("logsDir"), appName, sessionStart, viper.GetInt("logMaxSizeMB"))
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err)
	}
	var fileOut io.Writer
	if a.logFile != nil {
		fileOut = a.logFile
	}

	var provider *sdklog.LoggerProvider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    fileOut,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			provider = a.otel.LoggerProvider()
		}
	}

	var sinks []io.Writer
	if viper.GetBool("graylog.enabled") {
		sink, err := logging.NewGraylogSink(viper.GetString("graylog.address"))
		if err != nil {
			logger.Warn("Graylog sink disabled", "error", err)
		} else {
			sinks = append(sinks, sink)
			a.sinks = append(a.sinks, sink)
		}
	}

	a.logManager.Setup(logging.Options{
		File:        fileOut,
		Level:       viper.GetString("logLevel"),
		Provider:    provider,
		ServiceName: otelCfg.ServiceName,
		Sinks:       sinks,
		Context:     sessionCtx.Attrs,
	})
	if a.logFile != nil {
		a.logManager.Logger().Info("Logging to file", "path", a.logFile.Filename)
	}
}

func (a *app) shutdown() {
	logger := a.logManager.Logger()

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.engineCancel != nil {
		a.engineCancel()
		a.engineDone.Wait()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}
	if a.toaster != nil {
		a.toaster.Wait()
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			logger.Warn("Failed to close InfluxDB writer", "error", err)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.logManager.Flush(flushCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(flushCtx); err != nil {
			slog.Default().Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	for _, s := range a.sinks {
		_ = s.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
