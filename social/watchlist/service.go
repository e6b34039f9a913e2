// Package watchlist keeps the titles each user saved to watch later.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Input identifies a catalog title to save.
type Input struct {
	ExternalID string          `json:"external_id" binding:"required"`
	MediaType  model.MediaType `json:"media_type" binding:"required"`
	Title      string          `json:"title" binding:"required"`
	PosterURL  string          `json:"poster_url"`
}

type Service struct {
	db     *gorm.DB
	clock  social.Clock
	logger *zap.Logger
}

func NewService(db *gorm.DB, clock social.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = social.SystemClock
	}
	return &Service{db: db, clock: clock, logger: logger}
}

// Add saves a title for userID. Saving the same title twice fails with
// social.ErrDuplicate.
func (svc *Service) Add(ctx context.Context, userID int64, in Input) (*model.WatchlistItem, error) {
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.Title = strings.TrimSpace(in.Title)
	if in.ExternalID == "" || in.Title == "" || !in.MediaType.Valid() {
		return nil, fmt.Errorf("watchlist entry: %w", social.ErrInvalidInput)
	}
	item := &model.WatchlistItem{
		UserID:     userID,
		ExternalID: in.ExternalID,
		MediaType:  in.MediaType,
		Title:      in.Title,
		PosterURL:  in.PosterURL,
	}
	if err := svc.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%s %s on watchlist: %w", in.MediaType, in.ExternalID, social.ErrDuplicate)
		}
		return nil, fmt.Errorf("add to watchlist: %w", err)
	}
	return item, nil
}

// List returns the entries of userID, most recently added first.
func (svc *Service) List(ctx context.Context, userID int64) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem
	if err := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return items, nil
}

// ToggleWatched flips the watched flag of an entry owned by callerID.
func (svc *Service) ToggleWatched(ctx context.Context, id, callerID int64) (*model.WatchlistItem, error) {
	item, err := svc.owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	item.Watched = !item.Watched
	item.WatchedAt = nil
	if item.Watched {
		now := svc.clock()
		item.WatchedAt = &now
	}
	if err := svc.db.WithContext(ctx).Model(item).
		Select("watched", "watched_at").
		Updates(item).Error; err != nil {
		return nil, fmt.Errorf("update watchlist %d: %w", id, err)
	}
	return item, nil
}

// Remove deletes an entry owned by callerID.
func (svc *Service) Remove(ctx context.Context, id, callerID int64) error {
	item, err := svc.owned(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := svc.db.WithContext(ctx).Delete(item).Error; err != nil {
		return fmt.Errorf("delete watchlist %d: %w", id, err)
	}
	return nil
}

func (svc *Service) owned(ctx context.Context, id, callerID int64) (*model.WatchlistItem, error) {
	var item model.WatchlistItem
	if err := svc.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("watchlist %d: %w", id, social.ErrNotFound)
		}
		return nil, fmt.Errorf("load watchlist %d: %w", id, err)
	}
	if item.UserID != callerID {
		return nil, fmt.Errorf("watchlist %d: %w", id, social.ErrNotAuthorized)
	}
	return &item, nil
}
