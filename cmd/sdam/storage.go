package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sdam-project/sdam/internal/config"
	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/internal/storage/memory"
	pgstorage "github.com/sdam-project/sdam/internal/storage/postgres"
	sqlitestorage "github.com/sdam-project/sdam/internal/storage/sqlite"
	wsstorage "github.com/sdam-project/sdam/internal/storage/websocket"
)

// storageEnv carries what the backends need from the running session.
type storageEnv struct {
	SessionID    string
	SessionStart time.Time
	LogsDir      string
	LogManager   *logging.SlogManager
}

func createStorageBackend(storageCfg config.StorageConfig, env storageEnv) (storage.Backend, error) {
	logger := env.LogManager.Logger()

	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{
			SessionID:  env.SessionID,
			LogManager: env.LogManager,
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.DumpPath
		if dumpPath == "" {
			dumpPath = filepath.Join(env.LogsDir, fmt.Sprintf("%s_%s.db", appName, env.SessionStart.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, env.SessionID, env.LogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		logger.Info("WebSocket storage backend selected", "url", storageCfg.Websocket.URL)
		return wsstorage.New(wsstorage.Config{
			URL:       storageCfg.Websocket.URL,
			Secret:    storageCfg.Websocket.Secret,
			SessionID: env.SessionID,
		}, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend selected")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// initStorage creates and initializes the configured backend.
func initStorage(storageCfg config.StorageConfig, env storageEnv) (storage.Backend, error) {
	backend, err := createStorageBackend(storageCfg, env)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	env.LogManager.Logger().Info("Storage ready", slog.String("type", storageCfg.Type))
	return backend, nil
}
