package model

import "time"

// Goal is a personal viewing goal, visible to the owner and their friends.
type Goal struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"index;not null" json:"user_id"`
	Description string     `gorm:"size:500;not null" json:"description"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
