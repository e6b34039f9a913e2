package model

import "time"

// GroupRole is a member's standing in a group.
type GroupRole string

const (
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// Group is a named circle of users sharing recommendations and a chat.
type Group struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:80;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	CreatedBy   int64     `gorm:"index;not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GroupMember is one user's membership. At most one row per (group, user).
type GroupMember struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID  int64     `gorm:"uniqueIndex:idx_group_member;not null" json:"group_id"`
	UserID   int64     `gorm:"uniqueIndex:idx_group_member;index;not null" json:"user_id"`
	Role     GroupRole `gorm:"size:16;not null" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// GroupRecommendation is a title recommended inside a group only.
type GroupRecommendation struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID    int64     `gorm:"index;not null" json:"group_id"`
	UserID     int64     `gorm:"not null" json:"user_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	MediaType  MediaType `gorm:"size:16;not null" json:"media_type"`
	Rating     int       `gorm:"default:0" json:"rating"`
	Comment    string    `gorm:"type:text" json:"comment,omitempty"`
	Platform   string    `gorm:"size:64" json:"platform,omitempty"`
	ExternalID string    `gorm:"size:32" json:"external_id,omitempty"`
	PosterURL  string    `gorm:"size:512" json:"poster_url,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GroupMessage is a chat line posted to a group.
type GroupMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64     `gorm:"index;not null" json:"group_id"`
	UserID    int64     `gorm:"not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
