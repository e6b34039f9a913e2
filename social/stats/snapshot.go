// Package stats computes the per-user counters that badges are evaluated on.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Snapshot is a point-in-time view of a user's activity. It is recomputed
// on every request and never stored.
type Snapshot struct {
	UserID               int64     `json:"user_id"`
	TotalRecommendations int64     `json:"total_recommendations"`
	TotalLikesReceived   int64     `json:"total_likes_received"`
	TotalFriends         int64     `json:"total_friends"`
	WatchlistCount       int64     `json:"watchlist_count"`
	WatchedCount         int64     `json:"watched_count"`
	CreatedAt            time.Time `json:"created_at"`
	GrantedBadges        []string  `json:"granted_badges"`
}

// Builder assembles snapshots from the store.
type Builder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewBuilder creates a new stats Builder.
func NewBuilder(db *gorm.DB, logger *zap.Logger) *Builder {
	return &Builder{db: db, logger: logger}
}

// Snapshot gathers the counters of userID. The count queries are
// independent and run concurrently; the first failure cancels the rest.
func (b *Builder) Snapshot(ctx context.Context, userID int64) (*Snapshot, error) {
	user, err := social.FindUser(ctx, b.db, userID)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		UserID:        user.ID,
		CreatedAt:     user.CreatedAt,
		GrantedBadges: append([]string{}, user.GrantedBadges...),
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return b.count(ctx, "recommendations", &s.TotalRecommendations,
			b.db.Model(&model.ContentItem{}).Where("owner_id = ?", userID))
	})
	p.Go(func(ctx context.Context) error {
		return b.count(ctx, "likes received", &s.TotalLikesReceived,
			b.db.Model(&model.Like{}).
				Joins("JOIN content_items ON content_items.id = likes.content_id").
				Where("content_items.owner_id = ?", userID))
	})
	p.Go(func(ctx context.Context) error {
		return b.count(ctx, "friends", &s.TotalFriends,
			b.db.Model(&model.Relationship{}).
				Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, model.RelationshipAccepted))
	})
	p.Go(func(ctx context.Context) error {
		return b.count(ctx, "watchlist", &s.WatchlistCount,
			b.db.Model(&model.WatchlistItem{}).Where("user_id = ?", userID))
	})
	p.Go(func(ctx context.Context) error {
		return b.count(ctx, "watched", &s.WatchedCount,
			b.db.Model(&model.WatchlistItem{}).Where("user_id = ? AND watched = ?", userID, true))
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *Builder) count(ctx context.Context, what string, dst *int64, q *gorm.DB) error {
	if err := q.WithContext(ctx).Count(dst).Error; err != nil {
		return fmt.Errorf("count %s: %w", what, err)
	}
	return nil
}
