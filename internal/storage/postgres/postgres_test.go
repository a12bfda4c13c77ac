package postgres

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/model"
	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/internal/storage/storagetest"
	"github.com/sdam-project/sdam/pkg/core"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestDB stands in for PostgreSQL; the backend only relies on portable SQL.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestNew(t *testing.T) {
	b := New(Dependencies{SessionID: "s"})
	require.NotNil(t, b)
	assert.NoError(t, b.Close(), "closing an uninitialized backend is a no-op")
}

func TestBackendContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		b := New(Dependencies{DB: newTestDB(t), SessionID: "contract", LogManager: logging.NewSlogManager()})
		require.NoError(t, b.Init())
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestInit_MigratesTables(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, SessionID: "migrate"})
	require.NoError(t, b.Init())

	assert.True(t, db.Migrator().HasTable(&model.Mark{}))
	assert.True(t, db.Migrator().HasTable(&model.Session{}))

	var session model.Session
	require.NoError(t, db.First(&session, "id = ?", "migrate").Error)
	assert.False(t, session.StartedAt.IsZero())
}

func TestClose_KeepsInjectedDB(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, SessionID: "keep"})
	require.NoError(t, b.Init())
	_, err := b.AddMark(1, core.CategoryOne, nil)
	require.NoError(t, err)

	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.Mark{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
