// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// Marks of every session share one table, keyed by session id.
package postgres

import (
	"fmt"

	"github.com/sdam-project/sdam/internal/database"
	"github.com/sdam-project/sdam/internal/logging"
	gormstorage "github.com/sdam-project/sdam/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the PostgreSQL storage backend.
type Dependencies struct {
	// DB is used as-is when set; otherwise Init connects using the db.* settings.
	DB         *gorm.DB
	SessionID  string
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	ownsDB  bool
	dbReady bool
}

// New creates a new PostgreSQL storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// Init connects when needed and prepares the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.deps.DB = db
		b.ownsDB = true
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		SessionID:  b.deps.SessionID,
		LogManager: b.deps.LogManager,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.deps.LogManager.WriteLog("postgres:Init", "PostgreSQL mark store ready", "INFO")
	return nil
}

// Close releases the connection if this backend opened it.
func (b *Backend) Close() error {
	if !b.dbReady {
		return nil
	}
	b.dbReady = false
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.ownsDB {
		return database.Close(b.deps.DB)
	}
	return nil
}
