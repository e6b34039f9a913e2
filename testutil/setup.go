package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cinecircle/server/cache"
	"github.com/cinecircle/server/config"
	database "github.com/cinecircle/server/db"
	"github.com/cinecircle/server/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory SQLite database and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Mode:       database.ModeSQLite,
		SQLitePath: ":memory:",
	}, nil)
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SetupFileDB opens a SQLite file in a temp dir with the default connection
// pool, so concurrent callers really run on separate connections.
func SetupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Mode:       database.ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "cinecircle.db"),
	}, nil)
	require.NoError(t, err, "SetupFileDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupFileDB: AutoMigrate")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SetupTestCache returns one in-process store as both Cache and PubSub, so
// cache writes and published events are visible to the same test.
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	s := cache.NewMemory(cache.Config{})
	t.Cleanup(func() { _ = s.Close() })
	return s, s
}

// Logger returns a development logger for tests.
func Logger() *zap.Logger {
	l, _ := zap.NewDevelopment()
	return l
}

// CreateUser inserts a user with the given username.
func CreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, DisplayName: username}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateContent inserts a content item owned by ownerID.
func CreateContent(t *testing.T, db *gorm.DB, ownerID int64, title string, media model.MediaType, createdAt time.Time) *model.ContentItem {
	t.Helper()
	item := &model.ContentItem{OwnerID: ownerID, Title: title, MediaType: media, CreatedAt: createdAt}
	require.NoError(t, db.Create(item).Error)
	return item
}
