// Package message stores direct messages between users.
package message

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxBodyLength       = 2000
	DefaultConversation = 100
	snippetLength       = 80
)

// Conversation summarises the exchange with one other user.
type Conversation struct {
	With   model.Profile `json:"with"`
	Last   model.Message `json:"last_message"`
	Unread int64         `json:"unread"`
}

type Service struct {
	db     *gorm.DB
	feed   *changefeed.Feed
	logger *zap.Logger
}

func NewService(db *gorm.DB, feed *changefeed.Feed, logger *zap.Logger) *Service {
	return &Service{db: db, feed: feed, logger: logger}
}

// Send stores a message from senderID to receiverID.
func (svc *Service) Send(ctx context.Context, senderID, receiverID int64, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > MaxBodyLength {
		return nil, fmt.Errorf("message length %d: %w", n, social.ErrInvalidInput)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("send message: %w", social.ErrSelfReference)
	}
	if _, err := social.FindUser(ctx, svc.db, receiverID); err != nil {
		return nil, err
	}

	msg := &model.Message{SenderID: senderID, ReceiverID: receiverID, Body: body}
	if err := svc.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	svc.feed.Publish(ctx, changefeed.Event{
		Kind:     changefeed.KindMessage,
		Op:       changefeed.OpCreated,
		ID:       msg.ID,
		ActorID:  senderID,
		TargetID: receiverID,
		Snippet:  snippet(body),
	})
	return msg, nil
}

// Conversation returns the latest limit messages between callerID and
// otherID in both directions, oldest first, and marks the ones callerID
// received as read.
func (svc *Service) Conversation(ctx context.Context, callerID, otherID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = DefaultConversation
	}
	var msgs []model.Message
	if err := svc.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			callerID, otherID, otherID, callerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	slices.Reverse(msgs)

	if err := svc.db.WithContext(ctx).Model(&model.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, callerID, false).
		Update("is_read", true).Error; err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	return msgs, nil
}

// UnreadCount is the number of unread messages addressed to userID.
func (svc *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := svc.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// Conversations lists everyone userID has exchanged messages with, most
// recent exchange first, with the count of unread messages from each.
func (svc *Service) Conversations(ctx context.Context, userID int64) ([]Conversation, error) {
	db := svc.db.WithContext(ctx)
	var heads []struct {
		Partner int64
		LastID  int64
	}
	if err := db.Model(&model.Message{}).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner, MAX(id) AS last_id", userID).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("partner").
		Scan(&heads).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := []Conversation{}
	if len(heads) == 0 {
		return out, nil
	}
	lastIDs := make([]int64, len(heads))
	for i, h := range heads {
		lastIDs[i] = h.LastID
	}
	var last []model.Message
	if err := db.Where("id IN ?", lastIDs).
		Order("created_at DESC, id DESC").
		Find(&last).Error; err != nil {
		return nil, fmt.Errorf("load last messages: %w", err)
	}

	var unread []struct {
		SenderID int64
		N        int64
	}
	if err := db.Model(&model.Message{}).
		Select("sender_id, COUNT(*) AS n").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&unread).Error; err != nil {
		return nil, fmt.Errorf("count unread by sender: %w", err)
	}
	unreadBy := make(map[int64]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.SenderID] = u.N
	}

	others := make([]int64, len(last))
	for i := range last {
		others[i] = counterpart(last[i], userID)
	}
	profiles, err := social.LoadProfiles(ctx, svc.db, others)
	if err != nil {
		return nil, err
	}
	for i, m := range last {
		out = append(out, Conversation{With: profiles[others[i]], Last: m, Unread: unreadBy[others[i]]})
	}
	return out, nil
}

func counterpart(m model.Message, userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

func snippet(body string) string {
	r := []rune(body)
	if len(r) <= snippetLength {
		return body
	}
	return string(r[:snippetLength]) + "…"
}
