package model

import "time"

// Message is a direct message between two users.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"index;not null" json:"sender_id"`
	ReceiverID int64     `gorm:"index;not null" json:"receiver_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Read       bool      `gorm:"column:is_read;default:false" json:"read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
