package model

import "time"

// MediaType classifies a recommended title.
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaSeries MediaType = "series"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaMovie, MediaSeries:
		return true
	}
	return false
}

// ContentItem is a shared recommendation. Like and comment counts are
// derived from child rows and never stored here.
type ContentItem struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID    int64     `gorm:"index;not null" json:"owner_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	MediaType  MediaType `gorm:"size:16;not null;index" json:"media_type"`
	Genre      string    `gorm:"size:64" json:"genre,omitempty"`
	Platform   string    `gorm:"size:64" json:"platform,omitempty"`
	ExternalID string    `gorm:"size:32" json:"external_id,omitempty"`
	PosterURL  string    `gorm:"size:512" json:"poster_url,omitempty"`
	Rating     int       `gorm:"default:0" json:"rating"`
	Body       string    `gorm:"type:text" json:"body,omitempty"`
	Overview   string    `gorm:"type:text" json:"overview,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Like marks that a user likes a content item. At most one row per pair.
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_like_user_content;not null" json:"user_id"`
	ContentID int64     `gorm:"uniqueIndex:idx_like_user_content;index;not null" json:"content_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Comment is a free-text reply on a content item.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	ContentID int64     `gorm:"index;not null" json:"content_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
