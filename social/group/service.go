// Package group manages friend groups: membership, group-only
// recommendations and the group chat.
package group

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxNameLength        = 80
	MaxDescriptionLength = 500
	MaxMessageLength     = 2000
	MaxRating            = 5
	DefaultMessages      = 100
	snippetLength        = 80
)

// Event statuses published on the group change feed.
const (
	StatusMember         = "member"
	StatusMessage        = "message"
	StatusRecommendation = "recommendation"
)

// Friends reports the accepted friends of a user.
type Friends interface {
	FriendIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Summary is one group in a member's list.
type Summary struct {
	model.Group
	MemberCount int64 `json:"member_count"`
	// LastRecommendation is the title most recently recommended, if any.
	LastRecommendation string     `json:"last_recommendation,omitempty"`
	LastActivity       *time.Time `json:"last_activity,omitempty"`
}

// Member is a group member with their profile.
type Member struct {
	User     model.Profile   `json:"user"`
	Role     model.GroupRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// Detail is a group with its member list.
type Detail struct {
	model.Group
	Members []Member `json:"members"`
}

// Recommendation is a group recommendation with its author.
type Recommendation struct {
	model.GroupRecommendation
	Author model.Profile `json:"author"`
}

// Message is a chat line with its author.
type Message struct {
	model.GroupMessage
	Author model.Profile `json:"author"`
}

// RecommendationInput is the caller-supplied part of a group recommendation.
type RecommendationInput struct {
	Title      string          `json:"title" binding:"required"`
	MediaType  model.MediaType `json:"media_type" binding:"required"`
	Rating     int             `json:"rating"`
	Comment    string          `json:"comment"`
	Platform   string          `json:"platform"`
	ExternalID string          `json:"external_id"`
	PosterURL  string          `json:"poster_url"`
}

type Service struct {
	db      *gorm.DB
	friends Friends
	feed    *changefeed.Feed
	logger  *zap.Logger
}

func NewService(db *gorm.DB, friends Friends, feed *changefeed.Feed, logger *zap.Logger) *Service {
	return &Service{db: db, friends: friends, feed: feed, logger: logger}
}

// Create stores a group and makes its creator the admin.
func (svc *Service) Create(ctx context.Context, creatorID int64, name, description string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return nil, fmt.Errorf("group name length %d: %w", n, social.ErrInvalidInput)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("group description too long: %w", social.ErrInvalidInput)
	}

	g := &model.Group{Name: name, Description: description, CreatedBy: creatorID}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		return tx.Create(&model.GroupMember{GroupID: g.ID, UserID: creatorID, Role: model.GroupRoleAdmin}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// List returns the groups userID belongs to, newest first, with member
// counts and the time of the latest recommendation or message.
func (svc *Service) List(ctx context.Context, userID int64) ([]Summary, error) {
	db := svc.db.WithContext(ctx)
	var groups []model.Group
	if err := db.
		Where("id IN (?)", db.Model(&model.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Order("created_at DESC, id DESC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups of %d: %w", userID, err)
	}
	out := make([]Summary, len(groups))
	if len(groups) == 0 {
		return out, nil
	}
	ids := make([]int64, len(groups))
	for i := range groups {
		ids[i] = groups[i].ID
	}

	var counts []struct {
		GroupID int64
		N       int64
	}
	if err := db.Model(&model.GroupMember{}).
		Select("group_id, COUNT(*) AS n").
		Where("group_id IN ?", ids).
		Group("group_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count group members: %w", err)
	}
	memberCount := make(map[int64]int64, len(counts))
	for _, c := range counts {
		memberCount[c.GroupID] = c.N
	}

	var recs []model.GroupRecommendation
	if err := db.
		Where("id IN (?)", db.Model(&model.GroupRecommendation{}).
			Select("MAX(id)").Where("group_id IN ?", ids).Group("group_id")).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("latest group recommendations: %w", err)
	}
	var msgs []model.GroupMessage
	if err := db.
		Where("id IN (?)", db.Model(&model.GroupMessage{}).
			Select("MAX(id)").Where("group_id IN ?", ids).Group("group_id")).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("latest group messages: %w", err)
	}
	lastRec := make(map[int64]model.GroupRecommendation, len(recs))
	for _, r := range recs {
		lastRec[r.GroupID] = r
	}
	lastMsg := make(map[int64]time.Time, len(msgs))
	for _, m := range msgs {
		lastMsg[m.GroupID] = m.CreatedAt
	}

	for i, g := range groups {
		s := Summary{Group: g, MemberCount: memberCount[g.ID]}
		var last time.Time
		if r, ok := lastRec[g.ID]; ok {
			s.LastRecommendation = r.Title
			last = r.CreatedAt
		}
		if at, ok := lastMsg[g.ID]; ok && at.After(last) {
			last = at
		}
		if !last.IsZero() {
			s.LastActivity = &last
		}
		out[i] = s
	}
	return out, nil
}

// Get returns a group with its members. Only members may read it.
func (svc *Service) Get(ctx context.Context, groupID, callerID int64) (*Detail, error) {
	g, err := svc.member(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	var rows []model.GroupMember
	if err := svc.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("joined_at, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list members of %d: %w", groupID, err)
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].UserID
	}
	profiles, err := social.LoadProfiles(ctx, svc.db, ids)
	if err != nil {
		return nil, err
	}
	d := &Detail{Group: *g, Members: make([]Member, len(rows))}
	for i, r := range rows {
		d.Members[i] = Member{User: profiles[r.UserID], Role: r.Role, JoinedAt: r.JoinedAt}
	}
	return d, nil
}

// Recommendations returns the group's recommendations, newest first.
func (svc *Service) Recommendations(ctx context.Context, groupID, callerID int64) ([]Recommendation, error) {
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	var recs []model.GroupRecommendation
	if err := svc.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list group recommendations: %w", err)
	}
	ids := make([]int64, len(recs))
	for i := range recs {
		ids[i] = recs[i].UserID
	}
	profiles, err := social.LoadProfiles(ctx, svc.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Recommendation, len(recs))
	for i, r := range recs {
		out[i] = Recommendation{GroupRecommendation: r, Author: profiles[r.UserID]}
	}
	return out, nil
}

// Recommend adds a recommendation to the group.
func (svc *Service) Recommend(ctx context.Context, groupID, callerID int64, in RecommendationInput) (*model.GroupRecommendation, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", social.ErrInvalidInput)
	}
	if !in.MediaType.Valid() {
		return nil, fmt.Errorf("media type %q: %w", in.MediaType, social.ErrInvalidInput)
	}
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	rec := &model.GroupRecommendation{
		GroupID:    groupID,
		UserID:     callerID,
		Title:      title,
		MediaType:  in.MediaType,
		Rating:     min(max(in.Rating, 0), MaxRating),
		Comment:    strings.TrimSpace(in.Comment),
		Platform:   strings.TrimSpace(in.Platform),
		ExternalID: in.ExternalID,
		PosterURL:  in.PosterURL,
	}
	if err := svc.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create group recommendation: %w", err)
	}
	svc.publish(ctx, changefeed.Event{
		Op:      changefeed.OpCreated,
		ID:      rec.ID,
		GroupID: groupID,
		ActorID: callerID,
		Status:  StatusRecommendation,
		Snippet: title,
	})
	return rec, nil
}

// Messages returns the latest limit chat lines, oldest first.
func (svc *Service) Messages(ctx context.Context, groupID, callerID int64, limit int) ([]Message, error) {
	if limit <= 0 || limit > DefaultMessages {
		limit = DefaultMessages
	}
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	var msgs []model.GroupMessage
	if err := svc.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load group chat: %w", err)
	}
	slices.Reverse(msgs)
	ids := make([]int64, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].UserID
	}
	profiles, err := social.LoadProfiles(ctx, svc.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{GroupMessage: m, Author: profiles[m.UserID]}
	}
	return out, nil
}

// Post adds a chat line to the group.
func (svc *Service) Post(ctx context.Context, groupID, callerID int64, body string) (*model.GroupMessage, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > MaxMessageLength {
		return nil, fmt.Errorf("group message length %d: %w", n, social.ErrInvalidInput)
	}
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	msg := &model.GroupMessage{GroupID: groupID, UserID: callerID, Body: body}
	if err := svc.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create group message: %w", err)
	}
	svc.publish(ctx, changefeed.Event{
		Op:      changefeed.OpCreated,
		ID:      msg.ID,
		GroupID: groupID,
		ActorID: callerID,
		Status:  StatusMessage,
		Snippet: snippet(body),
	})
	return msg, nil
}

// Invitable returns the caller's friends who are not yet members.
func (svc *Service) Invitable(ctx context.Context, groupID, callerID int64) ([]model.Profile, error) {
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	friendIDs, err := svc.friends.FriendIDs(ctx, callerID)
	if err != nil {
		return nil, err
	}
	var members []int64
	if err := svc.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &members).Error; err != nil {
		return nil, fmt.Errorf("list members of %d: %w", groupID, err)
	}
	candidates := slices.DeleteFunc(friendIDs, func(id int64) bool { return slices.Contains(members, id) })
	profiles, err := social.LoadProfiles(ctx, svc.db, candidates)
	if err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Profile) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

// Invite adds friendID to the group. The caller must be a member and an
// accepted friend of friendID.
func (svc *Service) Invite(ctx context.Context, groupID, callerID, friendID int64) (*model.GroupMember, error) {
	if friendID == callerID {
		return nil, fmt.Errorf("invite to group %d: %w", groupID, social.ErrSelfReference)
	}
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	friendIDs, err := svc.friends.FriendIDs(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(friendIDs, friendID) {
		return nil, fmt.Errorf("invite %d to group %d: not a friend: %w", friendID, groupID, social.ErrNotAuthorized)
	}

	m := &model.GroupMember{GroupID: groupID, UserID: friendID, Role: model.GroupRoleMember}
	if err := svc.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("user %d in group %d: %w", friendID, groupID, social.ErrDuplicate)
		}
		return nil, fmt.Errorf("add group member: %w", err)
	}
	svc.publish(ctx, changefeed.Event{
		Op:       changefeed.OpCreated,
		ID:       m.ID,
		GroupID:  groupID,
		ActorID:  callerID,
		TargetID: friendID,
		Status:   StatusMember,
	})
	return m, nil
}

// Leave removes the caller from the group. The last member to leave
// deletes the group with its recommendations and chat.
func (svc *Service) Leave(ctx context.Context, groupID, callerID int64) error {
	if _, err := svc.member(ctx, groupID, callerID); err != nil {
		return err
	}
	var emptied bool
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_id = ? AND user_id = ?", groupID, callerID).Delete(&model.GroupMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return social.ErrAlreadyResolved
		}
		var left int64
		if err := tx.Model(&model.GroupMember{}).Where("group_id = ?", groupID).Count(&left).Error; err != nil {
			return err
		}
		if left > 0 {
			return nil
		}
		emptied = true
		for _, child := range []any{&model.GroupRecommendation{}, &model.GroupMessage{}} {
			if err := tx.Where("group_id = ?", groupID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Group{}, groupID).Error
	})
	if err != nil {
		return fmt.Errorf("leave group %d: %w", groupID, err)
	}
	if emptied {
		svc.logger.Info("group deleted after last member left", zap.Int64("group_id", groupID))
	}
	svc.publish(ctx, changefeed.Event{
		Op:      changefeed.OpDeleted,
		GroupID: groupID,
		ActorID: callerID,
		Status:  StatusMember,
	})
	return nil
}

// member loads the group and checks that userID belongs to it.
func (svc *Service) member(ctx context.Context, groupID, userID int64) (*model.Group, error) {
	var g model.Group
	if err := svc.db.WithContext(ctx).First(&g, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %d: %w", groupID, social.ErrNotFound)
		}
		return nil, fmt.Errorf("load group %d: %w", groupID, err)
	}
	var n int64
	if err := svc.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("user %d in group %d: %w", userID, groupID, social.ErrNotAuthorized)
	}
	return &g, nil
}

func (svc *Service) publish(ctx context.Context, ev changefeed.Event) {
	ev.Kind = changefeed.KindGroup
	svc.feed.Publish(ctx, ev)
}

func snippet(body string) string {
	r := []rune(body)
	if len(r) <= snippetLength {
		return body
	}
	return string(r[:snippetLength]) + "…"
}
