// Package content stores shared recommendations.
package content

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

const (
	MaxRating      = 5
	MaxPageSize    = 50
	MinQueryLength = 2
	MaxSearch      = 20
)

// Input is the caller-supplied part of a new recommendation.
type Input struct {
	Title      string          `json:"title" binding:"required"`
	MediaType  model.MediaType `json:"media_type" binding:"required"`
	Genre      string          `json:"genre"`
	Platform   string          `json:"platform"`
	ExternalID string          `json:"external_id"`
	PosterURL  string          `json:"poster_url"`
	Rating     int             `json:"rating"`
	Body       string          `json:"body"`
	Overview   string          `json:"overview"`
}

// Service manages content items.
type Service struct {
	db     *gorm.DB
	feed   *changefeed.Feed
	logger *zap.Logger
}

// NewService creates a new content Service.
func NewService(db *gorm.DB, feed *changefeed.Feed, logger *zap.Logger) *Service {
	return &Service{db: db, feed: feed, logger: logger}
}

// Create stores a recommendation owned by ownerID.
func (svc *Service) Create(ctx context.Context, ownerID int64, in Input) (*model.ContentItem, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", social.ErrInvalidInput)
	}
	if !in.MediaType.Valid() {
		return nil, fmt.Errorf("media type %q: %w", in.MediaType, social.ErrInvalidInput)
	}
	item := &model.ContentItem{
		OwnerID:    ownerID,
		Title:      title,
		MediaType:  in.MediaType,
		Genre:      strings.TrimSpace(in.Genre),
		Platform:   strings.TrimSpace(in.Platform),
		ExternalID: in.ExternalID,
		PosterURL:  in.PosterURL,
		Rating:     min(max(in.Rating, 0), MaxRating),
		Body:       strings.TrimSpace(in.Body),
		Overview:   in.Overview,
	}
	if err := svc.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	svc.feed.Publish(ctx, changefeed.Event{
		Kind:    changefeed.KindContent,
		Op:      changefeed.OpCreated,
		ID:      item.ID,
		ActorID: ownerID,
		Snippet: item.Title,
	})
	return item, nil
}

// Get loads one item.
func (svc *Service) Get(ctx context.Context, id int64) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := svc.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content %d: %w", id, social.ErrNotFound)
		}
		return nil, fmt.Errorf("load content %d: %w", id, err)
	}
	return &item, nil
}

// ListRecent pages through all items newest first. Ties on createdAt are
// broken by id descending; the weekly pick relies on this ordering.
func (svc *Service) ListRecent(ctx context.Context, limit, offset int) ([]model.ContentItem, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	var items []model.ContentItem
	err := svc.db.WithContext(ctx).
		Scopes(DefaultOrder).
		Limit(limit).Offset(max(offset, 0)).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

// Search finds items whose title contains query, ignoring case, newest
// first. Queries shorter than MinQueryLength match nothing.
func (svc *Service) Search(ctx context.Context, query string, limit int) ([]model.ContentItem, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []model.ContentItem{}, nil
	}
	if limit <= 0 || limit > MaxSearch {
		limit = MaxSearch
	}
	var items []model.ContentItem
	err := svc.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? ESCAPE '!'", "%"+social.EscapeLike(strings.ToLower(query))+"%").
		Scopes(DefaultOrder).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	return items, nil
}

// ListByOwner returns every item of ownerID newest first.
func (svc *Service) ListByOwner(ctx context.Context, ownerID int64) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := svc.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Scopes(DefaultOrder).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list content of %d: %w", ownerID, err)
	}
	return items, nil
}

// All returns the full content set in default order.
func (svc *Service) All(ctx context.Context) ([]model.ContentItem, error) {
	var items []model.ContentItem
	if err := svc.db.WithContext(ctx).Scopes(DefaultOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

// Eligible returns items created at or after since (nil means no lower
// bound), optionally restricted to one media type (empty means all).
func (svc *Service) Eligible(ctx context.Context, since *time.Time, mediaType model.MediaType) ([]model.ContentItem, error) {
	q := svc.db.WithContext(ctx).Model(&model.ContentItem{})
	if since != nil {
		q = q.Where("created_at >= ?", since.UTC())
	}
	if mediaType != "" {
		if !mediaType.Valid() {
			return nil, fmt.Errorf("media type %q: %w", mediaType, social.ErrInvalidInput)
		}
		q = q.Where("media_type = ?", mediaType)
	}
	var items []model.ContentItem
	if err := q.Scopes(DefaultOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("eligible content: %w", err)
	}
	return items, nil
}

// Delete removes an item with its likes and comments. Only the owner may
// delete it.
func (svc *Service) Delete(ctx context.Context, id, callerID int64) error {
	item, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.OwnerID != callerID {
		return fmt.Errorf("delete content %d: %w", id, social.ErrNotAuthorized)
	}
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ContentItem{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete content %d: %w", id, err)
	}
	svc.feed.Publish(ctx, changefeed.Event{
		Kind:    changefeed.KindContent,
		Op:      changefeed.OpDeleted,
		ID:      id,
		ActorID: callerID,
	})
	return nil
}

// Owners loads the public profiles of the owners of items.
func (svc *Service) Owners(ctx context.Context, items []model.ContentItem) (map[int64]model.Profile, error) {
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].OwnerID
	}
	return social.LoadProfiles(ctx, svc.db, ids)
}

// DefaultOrder is the listing order shared by feeds and the weekly pick.
func DefaultOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}
