package database

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
)

// Database is the local SQLite store for admin accounts, settings groups and
// browser sessions. Library data lives in the realtime store instead.
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (creating if needed) the SQLite file at dbPath and
// migrates the admin tables. ":memory:" is accepted for tests.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&entities.Admin{}, &entities.Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.WithFields(logrus.Fields{"path": dbPath}).Info("Database initialized")
	return &Database{DB: db}, nil
}

func gormLogLevel() gormlogger.LogLevel {
	if logger.Log().Logger.IsLevelEnabled(logrus.DebugLevel) {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// SQLDB exposes the pooled handle for the session store.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
