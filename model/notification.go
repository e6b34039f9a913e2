package model

import "time"

// NotificationType is the causal kind of a notification.
type NotificationType string

const (
	NotifyLike           NotificationType = "like"
	NotifyComment        NotificationType = "comment"
	NotifyFriendRequest  NotificationType = "friend_request"
	NotifyFriendAccepted NotificationType = "friend_accepted"
	NotifyMessage        NotificationType = "message"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyLike, NotifyComment, NotifyFriendRequest, NotifyFriendAccepted, NotifyMessage:
		return true
	}
	return false
}

// Notification is an informational inbox entry produced by the notification
// generator. Duplicates are tolerated.
type Notification struct {
	ID               int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID      int64            `gorm:"index:idx_notification_recipient;not null" json:"recipient_id"`
	Type             NotificationType `gorm:"size:24;not null" json:"type"`
	SourceUserID     int64            `gorm:"not null" json:"source_user_id"`
	RelatedContentID *int64           `json:"related_content_id,omitempty"`
	Message          string           `gorm:"size:255" json:"message,omitempty"`
	Read             bool             `gorm:"column:is_read;default:false;index" json:"read"`
	CreatedAt        time.Time        `gorm:"autoCreateTime;index:idx_notification_recipient" json:"created_at"`
}
