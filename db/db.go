// Package db opens the gorm handle for the configured driver.
package db

import (
	"fmt"
	"time"

	"github.com/cinecircle/server/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// SlowQueryThreshold is the duration above which a statement is logged.
const SlowQueryThreshold = 200 * time.Millisecond

// Open returns a *gorm.DB for cfg.Mode. Unique-constraint failures surface
// as gorm.ErrDuplicatedKey on every driver and timestamps are written in UTC.
// Slow statements and driver errors go to log; a nil log silences gorm.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         gormLogger(log),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	switch cfg.Mode {
	case ModeSQLite:
		return openSQLite(cfg.SQLitePath, gcfg)
	case ModeMySQL:
		return openMySQL(cfg, gcfg)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

// zapPrintf adapts a zap logger to gorm's logger.Writer.
type zapPrintf struct{ s *zap.SugaredLogger }

func (w zapPrintf) Printf(format string, args ...any) { w.s.Warnf(format, args...) }

func gormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.New(zapPrintf{s: log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             SlowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
