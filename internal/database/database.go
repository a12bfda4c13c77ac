// Package database opens the GORM connections used by the SQL mark stores.
package database

import (
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDSN builds a DSN from the db.* configuration keys.
func PostgresDSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
		viper.GetString("db.sslmode"),
	)
}

// GetPostgresDBStandalone opens PostgreSQL using the db.* configuration keys.
func GetPostgresDBStandalone() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return db, nil
}

// GetSqliteDBStandalone opens SQLite at path. An empty path opens a private
// in-memory database held by a single connection.
func GetSqliteDBStandalone(path string) (*gorm.DB, error) {
	memory := path == ""
	dsn := path
	if memory {
		dsn = fmt.Sprintf("file:sdam-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if memory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// the database lives as long as this connection does
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// DumpMemoryDBToDisk writes a point-in-time copy of db to sqliteFilePath.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %s", err)
		}
	}

	if err := db.Exec("VACUUM INTO ?", "file:"+sqliteFilePath).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %s", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
