// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are the in-memory
// connection and the dump loop.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/sdam-project/sdam/internal/database"
	"github.com/sdam-project/sdam/internal/logging"
	gormstorage "github.com/sdam-project/sdam/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db        *gorm.DB
	cfg       Config
	log       *logging.SlogManager
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a new SQLite storage backend.
func New(cfg Config, sessionID string, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDBStandalone("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		SessionID:  sessionID,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if b.cfg.DumpPath != "" {
			b.dump()
		}
		if cerr := b.Backend.Close(); cerr != nil {
			err = cerr
			return
		}
		err = database.Close(b.db)
	})
	return err
}

// Dump writes the current database to the configured path.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

func (b *Backend) dump() {
	start := time.Now()
	if err := b.Dump(); err != nil {
		b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		return
	}
	b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.dump()
		}
	}
}
