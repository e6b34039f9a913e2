// Package goal keeps personal viewing goals and shows them to friends.
package goal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const MaxDescriptionLength = 500

// Friends reports the accepted friends of a user.
type Friends interface {
	FriendIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Entry is a goal with its owner's profile.
type Entry struct {
	model.Goal
	Owner model.Profile `json:"owner"`
}

// Board splits what a viewer sees into their own goals and their friends'.
type Board struct {
	Mine    []Entry `json:"mine"`
	Friends []Entry `json:"friends"`
}

type Service struct {
	db      *gorm.DB
	friends Friends
	logger  *zap.Logger
}

func NewService(db *gorm.DB, friends Friends, logger *zap.Logger) *Service {
	return &Service{db: db, friends: friends, logger: logger}
}

// Create stores an open goal for userID. deadline may be nil.
func (svc *Service) Create(ctx context.Context, userID int64, description string, deadline *time.Time) (*model.Goal, error) {
	description = strings.TrimSpace(description)
	if n := utf8.RuneCountInString(description); n == 0 || n > MaxDescriptionLength {
		return nil, fmt.Errorf("goal length %d: %w", n, social.ErrInvalidInput)
	}
	if deadline != nil {
		d := deadline.UTC()
		deadline = &d
	}
	g := &model.Goal{UserID: userID, Description: description, Deadline: deadline}
	if err := svc.db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

// Board returns the goals of viewerID and of their friends, newest first.
func (svc *Service) Board(ctx context.Context, viewerID int64) (*Board, error) {
	friendIDs, err := svc.friends.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	owners := append([]int64{viewerID}, friendIDs...)

	var goals []model.Goal
	if err := svc.db.WithContext(ctx).
		Where("user_id IN ?", owners).
		Order("created_at DESC, id DESC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	profiles, err := social.LoadProfiles(ctx, svc.db, owners)
	if err != nil {
		return nil, err
	}
	b := &Board{Mine: []Entry{}, Friends: []Entry{}}
	for _, g := range goals {
		e := Entry{Goal: g, Owner: profiles[g.UserID]}
		if g.UserID == viewerID {
			b.Mine = append(b.Mine, e)
		} else {
			b.Friends = append(b.Friends, e)
		}
	}
	return b, nil
}

// Toggle flips the completed flag of a goal owned by callerID.
func (svc *Service) Toggle(ctx context.Context, id, callerID int64) (*model.Goal, error) {
	g, err := svc.owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	g.Completed = !g.Completed
	if err := svc.db.WithContext(ctx).Model(g).Update("completed", g.Completed).Error; err != nil {
		return nil, fmt.Errorf("update goal %d: %w", id, err)
	}
	return g, nil
}

// Delete removes a goal owned by callerID.
func (svc *Service) Delete(ctx context.Context, id, callerID int64) error {
	if _, err := svc.owned(ctx, id, callerID); err != nil {
		return err
	}
	if err := svc.db.WithContext(ctx).Delete(&model.Goal{}, id).Error; err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	return nil
}

func (svc *Service) owned(ctx context.Context, id, callerID int64) (*model.Goal, error) {
	var g model.Goal
	if err := svc.db.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("goal %d: %w", id, social.ErrNotFound)
		}
		return nil, fmt.Errorf("load goal %d: %w", id, err)
	}
	if g.UserID != callerID {
		return nil, fmt.Errorf("goal %d: %w", id, social.ErrNotAuthorized)
	}
	return &g, nil
}
