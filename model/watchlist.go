package model

import "time"

// WatchlistItem is a title a user saved to watch later.
type WatchlistItem struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64      `gorm:"uniqueIndex:idx_watchlist_entry;not null" json:"user_id"`
	ExternalID string     `gorm:"uniqueIndex:idx_watchlist_entry;size:32;not null" json:"external_id"`
	MediaType  MediaType  `gorm:"uniqueIndex:idx_watchlist_entry;size:16;not null" json:"media_type"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	PosterURL  string     `gorm:"size:512" json:"poster_url,omitempty"`
	Watched    bool       `gorm:"default:false" json:"watched"`
	WatchedAt  *time.Time `json:"watched_at,omitempty"`
	AddedAt    time.Time  `gorm:"autoCreateTime" json:"added_at"`
}

func (WatchlistItem) TableName() string { return "watchlist" }
