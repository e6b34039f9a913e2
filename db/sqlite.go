package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func inMemory(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// openSQLite enables foreign keys and a busy timeout, and begins every
// transaction IMMEDIATE so concurrent writers queue on the busy timeout
// instead of failing a lock upgrade. In-memory databases are pinned to one
// connection so every query sees the same schema.
func openSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if !inMemory(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("db: sqlite dir: %w", err)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("db: sqlite %s: %w", path, err)
	}
	if inMemory(path) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
