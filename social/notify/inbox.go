package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxListSize caps List.
const MaxListSize = 50

// View is a notification with its source user's profile.
type View struct {
	model.Notification
	Source model.Profile `json:"source"`
}

// Inbox reads and manages stored notifications.
type Inbox struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewInbox(db *gorm.DB, logger *zap.Logger) *Inbox {
	return &Inbox{db: db, logger: logger}
}

// List returns up to limit notifications of recipientID, newest first.
func (in *Inbox) List(ctx context.Context, recipientID int64, limit int) ([]View, error) {
	if limit <= 0 || limit > MaxListSize {
		limit = MaxListSize
	}
	var rows []model.Notification
	if err := in.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].SourceUserID
	}
	profiles, err := social.LoadProfiles(ctx, in.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]View, len(rows))
	for i := range rows {
		out[i] = View{Notification: rows[i], Source: profiles[rows[i].SourceUserID]}
	}
	return out, nil
}

func (in *Inbox) UnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	var n int64
	if err := in.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkAllRead flags every unread notification of recipientID as read.
func (in *Inbox) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	res := in.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one notification. Only its recipient may delete it.
func (in *Inbox) Delete(ctx context.Context, id, callerID int64) error {
	var n model.Notification
	if err := in.db.WithContext(ctx).Select("id", "recipient_id").First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification %d: %w", id, social.ErrNotFound)
		}
		return fmt.Errorf("load notification %d: %w", id, err)
	}
	if n.RecipientID != callerID {
		return fmt.Errorf("delete notification %d: %w", id, social.ErrNotAuthorized)
	}
	if err := in.db.WithContext(ctx).Delete(&model.Notification{}, id).Error; err != nil {
		return fmt.Errorf("delete notification %d: %w", id, err)
	}
	return nil
}

// Clear removes every notification of recipientID.
func (in *Inbox) Clear(ctx context.Context, recipientID int64) (int64, error) {
	res := in.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Delete(&model.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Prune deletes read notifications created before cutoff.
func (in *Inbox) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := in.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff.UTC()).
		Delete(&model.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune notifications: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		in.logger.Info("pruned notifications", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
