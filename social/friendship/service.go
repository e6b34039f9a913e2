// Package friendship implements the relationship store and the friendship
// state machine: pending → accepted | rejected, pending|accepted → deleted.
package friendship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSearchLimit caps SearchCandidates when no limit is given.
const DefaultSearchLimit = 10

// Friend is one accepted friendship seen from a user's side.
type Friend struct {
	RelationshipID int64         `json:"relationship_id"`
	User           model.Profile `json:"user"`
	Since          time.Time     `json:"since"`
}

// Request is a pending relationship with the counterpart's profile.
type Request struct {
	RelationshipID int64         `json:"relationship_id"`
	User           model.Profile `json:"user"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Pending splits a user's pending relationships by direction.
type Pending struct {
	Incoming []Request `json:"incoming"`
	Outgoing []Request `json:"outgoing"`
}

// Service manages relationship rows.
type Service struct {
	db     *gorm.DB
	feed   *changefeed.Feed
	logger *zap.Logger
}

// NewService creates a new friendship Service.
func NewService(db *gorm.DB, feed *changefeed.Feed, logger *zap.Logger) *Service {
	return &Service{db: db, feed: feed, logger: logger}
}

// Get loads a relationship by id.
func (svc *Service) Get(ctx context.Context, id int64) (*model.Relationship, error) {
	var rel model.Relationship
	if err := svc.db.WithContext(ctx).First(&rel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("relationship %d: %w", id, social.ErrNotFound)
		}
		return nil, fmt.Errorf("load relationship %d: %w", id, err)
	}
	return &rel, nil
}

// Request creates a pending relationship from requesterID to addresseeID.
// At most one pending or accepted row may exist per unordered pair; the
// unique index on active_key enforces it against concurrent requests.
func (svc *Service) Request(ctx context.Context, requesterID, addresseeID int64) (*model.Relationship, error) {
	if requesterID == addresseeID {
		return nil, fmt.Errorf("request friendship: %w", social.ErrSelfReference)
	}
	if _, err := social.FindUser(ctx, svc.db, addresseeID); err != nil {
		return nil, err
	}

	key := model.PairKey(requesterID, addresseeID)
	var active int64
	if err := svc.db.WithContext(ctx).Model(&model.Relationship{}).
		Where("active_key = ?", key).Count(&active).Error; err != nil {
		return nil, fmt.Errorf("check relationship: %w", err)
	}
	if active > 0 {
		return nil, fmt.Errorf("request friendship %s: %w", key, social.ErrDuplicateRequest)
	}

	rel := &model.Relationship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      model.RelationshipPending,
		ActiveKey:   &key,
	}
	if err := svc.db.WithContext(ctx).Create(rel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("request friendship %s: %w", key, social.ErrDuplicateRequest)
		}
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	svc.publish(ctx, changefeed.OpCreated, rel, requesterID)
	return rel, nil
}

// Respond accepts or rejects a pending request. Only the addressee may
// respond. The status is re-checked in the UPDATE itself, so of two
// concurrent responses exactly one succeeds and the other gets
// ErrAlreadyResolved. A row that is no longer pending reports both
// ErrNotFound and ErrAlreadyResolved.
func (svc *Service) Respond(ctx context.Context, relationshipID, callerID int64, accept bool) (*model.Relationship, error) {
	rel, err := svc.Get(ctx, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel.Status != model.RelationshipPending {
		return nil, fmt.Errorf("relationship %d is %s: %w: %w", rel.ID, rel.Status, social.ErrNotFound, social.ErrAlreadyResolved)
	}
	if rel.AddresseeID != callerID {
		return nil, fmt.Errorf("respond to relationship %d: %w", rel.ID, social.ErrNotAuthorized)
	}

	updates := map[string]any{"status": model.RelationshipAccepted}
	if !accept {
		// a rejected row must not block a later request
		updates = map[string]any{"status": model.RelationshipRejected, "active_key": nil}
	}

	res := svc.db.WithContext(ctx).Model(&model.Relationship{}).
		Where("id = ? AND status = ?", rel.ID, model.RelationshipPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update relationship %d: %w", rel.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("respond to relationship %d: %w", rel.ID, social.ErrAlreadyResolved)
	}

	rel, err = svc.Get(ctx, rel.ID)
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, changefeed.OpUpdated, rel, callerID)
	return rel, nil
}

// Remove deletes a relationship in any status. Either party may remove it;
// afterwards the pair may request again.
func (svc *Service) Remove(ctx context.Context, relationshipID, callerID int64) error {
	rel, err := svc.Get(ctx, relationshipID)
	if err != nil {
		return err
	}
	if !rel.Involves(callerID) {
		return fmt.Errorf("remove relationship %d: %w", rel.ID, social.ErrNotAuthorized)
	}

	res := svc.db.WithContext(ctx).Delete(&model.Relationship{}, rel.ID)
	if res.Error != nil {
		return fmt.Errorf("delete relationship %d: %w", rel.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("remove relationship %d: %w", rel.ID, social.ErrAlreadyResolved)
	}

	svc.publish(ctx, changefeed.OpDeleted, rel, callerID)
	return nil
}

// FriendIDs returns the counterpart ids of every accepted relationship of
// userID, whichever side initiated it.
func (svc *Service) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	rels, err := svc.byStatus(ctx, userID, model.RelationshipAccepted)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rels))
	for i := range rels {
		ids[i] = rels[i].Counterpart(userID)
	}
	return ids, nil
}

// ListFriends returns the accepted friendships of userID with profiles.
func (svc *Service) ListFriends(ctx context.Context, userID int64) ([]Friend, error) {
	rels, err := svc.byStatus(ctx, userID, model.RelationshipAccepted)
	if err != nil {
		return nil, err
	}
	profiles, err := svc.counterpartProfiles(ctx, userID, rels)
	if err != nil {
		return nil, err
	}
	friends := make([]Friend, 0, len(rels))
	for _, r := range rels {
		friends = append(friends, Friend{
			RelationshipID: r.ID,
			User:           profiles[r.Counterpart(userID)],
			Since:          r.UpdatedAt,
		})
	}
	return friends, nil
}

// ListPending returns incoming and outgoing pending requests separately.
func (svc *Service) ListPending(ctx context.Context, userID int64) (*Pending, error) {
	rels, err := svc.byStatus(ctx, userID, model.RelationshipPending)
	if err != nil {
		return nil, err
	}
	profiles, err := svc.counterpartProfiles(ctx, userID, rels)
	if err != nil {
		return nil, err
	}
	out := &Pending{Incoming: []Request{}, Outgoing: []Request{}}
	for _, r := range rels {
		req := Request{
			RelationshipID: r.ID,
			User:           profiles[r.Counterpart(userID)],
			CreatedAt:      r.CreatedAt,
		}
		if r.AddresseeID == userID {
			out.Incoming = append(out.Incoming, req)
		} else {
			out.Outgoing = append(out.Outgoing, req)
		}
	}
	return out, nil
}

// SearchCandidates finds users whose username contains query, excluding the
// caller and anyone already a friend or in a pending request with them.
// Queries shorter than two characters return no results.
func (svc *Service) SearchCandidates(ctx context.Context, userID int64, query string, limit int) ([]model.Profile, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return []model.Profile{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var active []model.Relationship
	if err := svc.db.WithContext(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND active_key IS NOT NULL", userID, userID).
		Find(&active).Error; err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	excluded := make([]int64, 0, len(active)+1)
	excluded = append(excluded, userID)
	for i := range active {
		excluded = append(excluded, active[i].Counterpart(userID))
	}

	var users []model.User
	if err := svc.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '!'", "%"+social.EscapeLike(strings.ToLower(query))+"%").
		Where("id NOT IN ?", excluded).
		Order("username").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out := make([]model.Profile, len(users))
	for i := range users {
		out[i] = users[i].Profile()
	}
	return out, nil
}

func (svc *Service) byStatus(ctx context.Context, userID int64, status model.RelationshipStatus) ([]model.Relationship, error) {
	var rels []model.Relationship
	if err := svc.db.WithContext(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, status).
		Order("updated_at DESC, id DESC").
		Find(&rels).Error; err != nil {
		return nil, fmt.Errorf("list %s relationships: %w", status, err)
	}
	return rels, nil
}

func (svc *Service) counterpartProfiles(ctx context.Context, userID int64, rels []model.Relationship) (map[int64]model.Profile, error) {
	ids := make([]int64, len(rels))
	for i := range rels {
		ids[i] = rels[i].Counterpart(userID)
	}
	return social.LoadProfiles(ctx, svc.db, ids)
}

func (svc *Service) publish(ctx context.Context, op changefeed.Op, rel *model.Relationship, actorID int64) {
	svc.feed.Publish(ctx, changefeed.Event{
		Kind:     changefeed.KindRelationship,
		Op:       op,
		ID:       rel.ID,
		ActorID:  actorID,
		TargetID: rel.Counterpart(actorID),
		Status:   string(rel.Status),
	})
}
