package model

import "gorm.io/gorm"

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&User{},
	&Relationship{},
	&ContentItem{},
	&Like{},
	&Comment{},
	&Notification{},
	&Message{},
	&WatchlistItem{},
	&Group{},
	&GroupMember{},
	&GroupRecommendation{},
	&GroupMessage{},
	&Goal{},
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}
