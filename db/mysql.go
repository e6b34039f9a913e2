package db

import (
	"errors"
	"fmt"

	"github.com/cinecircle/server/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg config.DatabaseConfig, gcfg *gorm.Config) (*gorm.DB, error) {
	if cfg.MySQLDSN == "" {
		return nil, errors.New("db: database.mysql_dsn is required in mysql mode")
	}
	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), gcfg)
	if err != nil {
		return nil, fmt.Errorf("db: mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MySQLMaxOpen)
	sqlDB.SetMaxIdleConns(cfg.MySQLMaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.MySQLMaxLife)
	return db, nil
}
