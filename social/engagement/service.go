// Package engagement aggregates likes and comments per content item and
// owns the like toggle and comment lifecycle.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cinecircle/server/cache"
	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxCommentLength is the rune limit of a comment body.
const MaxCommentLength = 1000

// Counts is the derived engagement of one content item.
type Counts struct {
	ContentID     int64 `json:"content_id"`
	LikeCount     int64 `json:"like_count"`
	CommentCount  int64 `json:"comment_count"`
	LikedByViewer bool  `json:"liked_by_viewer"`
}

// CommentView is a comment with its author's profile.
type CommentView struct {
	model.Comment
	Author model.Profile `json:"author"`
}

// Service computes engagement and mutates likes and comments. Counts may be
// served from a per-item cache hash; every mutation drops the hash of the
// item it touched.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	feed   *changefeed.Feed
	logger *zap.Logger
}

// NewService creates a new engagement Service. c may be nil to disable the
// read cache.
func NewService(db *gorm.DB, c cache.Cache, ttl time.Duration, feed *changefeed.Feed, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, ttl: ttl, feed: feed, logger: logger}
}

func cacheKey(contentID int64) string {
	return "engagement:" + strconv.FormatInt(contentID, 10)
}

type countRow struct {
	ContentID int64
	N         int64
}

// Aggregate returns the counts of every id in ids. Store lookups are batched:
// one grouped query for likes, one for comments and one for the viewer's
// likes, regardless of len(ids). viewerID 0 means an anonymous viewer.
func (svc *Service) Aggregate(ctx context.Context, ids []int64, viewerID int64) (map[int64]Counts, error) {
	out := make(map[int64]Counts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var missing []int64
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		if c, ok := svc.cached(ctx, id); ok {
			out[id] = c
			continue
		}
		out[id] = Counts{ContentID: id}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		var likes, comments []countRow
		if err := svc.db.WithContext(ctx).Model(&model.Like{}).
			Select("content_id, COUNT(*) AS n").
			Where("content_id IN ?", missing).
			Group("content_id").
			Scan(&likes).Error; err != nil {
			return nil, fmt.Errorf("count likes: %w", err)
		}
		if err := svc.db.WithContext(ctx).Model(&model.Comment{}).
			Select("content_id, COUNT(*) AS n").
			Where("content_id IN ?", missing).
			Group("content_id").
			Scan(&comments).Error; err != nil {
			return nil, fmt.Errorf("count comments: %w", err)
		}
		for _, r := range likes {
			c := out[r.ContentID]
			c.LikeCount = r.N
			out[r.ContentID] = c
		}
		for _, r := range comments {
			c := out[r.ContentID]
			c.CommentCount = r.N
			out[r.ContentID] = c
		}
		for _, id := range missing {
			svc.store(ctx, out[id])
		}
	}

	if viewerID != 0 {
		var liked []int64
		if err := svc.db.WithContext(ctx).Model(&model.Like{}).
			Where("user_id = ? AND content_id IN ?", viewerID, ids).
			Pluck("content_id", &liked).Error; err != nil {
			return nil, fmt.Errorf("viewer likes: %w", err)
		}
		for _, id := range liked {
			c := out[id]
			c.LikedByViewer = true
			out[id] = c
		}
	}
	return out, nil
}

// ToggleLike removes the caller's like if present, otherwise adds it. The
// delete and insert run in one transaction and the unique (user, content)
// index absorbs a concurrent duplicate insert: the loser gets
// ErrDuplicateLike and exactly one row remains.
func (svc *Service) ToggleLike(ctx context.Context, userID, contentID int64) (Counts, error) {
	item, err := svc.content(ctx, contentID)
	if err != nil {
		return Counts{}, err
	}

	var like *model.Like
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND content_id = ?", userID, contentID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		l := &model.Like{UserID: userID, ContentID: contentID}
		if err := tx.Create(l).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return social.ErrDuplicateLike
			}
			return err
		}
		like = l
		return nil
	})
	svc.Invalidate(ctx, contentID)
	if err != nil {
		if errors.Is(err, social.ErrDuplicateLike) {
			return Counts{}, fmt.Errorf("like %d by %d: %w", contentID, userID, err)
		}
		return Counts{}, fmt.Errorf("toggle like %d by %d: %w", contentID, userID, err)
	}

	ev := changefeed.Event{
		Kind:      changefeed.KindLike,
		Op:        changefeed.OpDeleted,
		ActorID:   userID,
		TargetID:  item.OwnerID,
		ContentID: contentID,
		Snippet:   item.Title,
	}
	if like != nil {
		ev.Op = changefeed.OpCreated
		ev.ID = like.ID
	}
	svc.feed.Publish(ctx, ev)

	counts, err := svc.Aggregate(ctx, []int64{contentID}, userID)
	if err != nil {
		return Counts{}, err
	}
	return counts[contentID], nil
}

// AddComment stores a comment by userID on contentID.
func (svc *Service) AddComment(ctx context.Context, userID, contentID int64, body string) (*CommentView, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > MaxCommentLength {
		return nil, fmt.Errorf("comment length %d: %w", n, social.ErrInvalidInput)
	}
	item, err := svc.content(ctx, contentID)
	if err != nil {
		return nil, err
	}
	author, err := social.FindUser(ctx, svc.db, userID)
	if err != nil {
		return nil, err
	}

	cm := &model.Comment{UserID: userID, ContentID: contentID, Body: body}
	if err := svc.db.WithContext(ctx).Create(cm).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	svc.Invalidate(ctx, contentID)
	svc.feed.Publish(ctx, changefeed.Event{
		Kind:      changefeed.KindComment,
		Op:        changefeed.OpCreated,
		ID:        cm.ID,
		ActorID:   userID,
		TargetID:  item.OwnerID,
		ContentID: contentID,
		Snippet:   item.Title,
	})
	return &CommentView{Comment: *cm, Author: author.Profile()}, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (svc *Service) DeleteComment(ctx context.Context, commentID, callerID int64) error {
	var cm model.Comment
	if err := svc.db.WithContext(ctx).First(&cm, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("comment %d: %w", commentID, social.ErrNotFound)
		}
		return fmt.Errorf("load comment %d: %w", commentID, err)
	}
	if cm.UserID != callerID {
		return fmt.Errorf("delete comment %d: %w", commentID, social.ErrNotAuthorized)
	}
	if err := svc.db.WithContext(ctx).Delete(&model.Comment{}, cm.ID).Error; err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	svc.Invalidate(ctx, cm.ContentID)
	svc.feed.Publish(ctx, changefeed.Event{
		Kind:      changefeed.KindComment,
		Op:        changefeed.OpDeleted,
		ID:        cm.ID,
		ActorID:   callerID,
		ContentID: cm.ContentID,
	})
	return nil
}

// Comments lists the comments of contentID oldest first.
func (svc *Service) Comments(ctx context.Context, contentID int64) ([]CommentView, error) {
	if _, err := svc.content(ctx, contentID); err != nil {
		return nil, err
	}
	var rows []model.Comment
	if err := svc.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].UserID
	}
	profiles, err := social.LoadProfiles(ctx, svc.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]CommentView, len(rows))
	for i := range rows {
		out[i] = CommentView{Comment: rows[i], Author: profiles[rows[i].UserID]}
	}
	return out, nil
}

// Invalidate drops cached counts for the given items.
func (svc *Service) Invalidate(ctx context.Context, contentIDs ...int64) {
	if svc.cache == nil || len(contentIDs) == 0 {
		return
	}
	keys := make([]string, len(contentIDs))
	for i, id := range contentIDs {
		keys[i] = cacheKey(id)
	}
	if err := svc.cache.Del(context.WithoutCancel(ctx), keys...); err != nil {
		svc.logger.Warn("engagement cache invalidate failed", zap.Int64s("content_ids", contentIDs), zap.Error(err))
	}
}

func (svc *Service) content(ctx context.Context, id int64) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := svc.db.WithContext(ctx).Select("id", "owner_id", "title").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content %d: %w", id, social.ErrNotFound)
		}
		return nil, fmt.Errorf("load content %d: %w", id, err)
	}
	return &item, nil
}

func (svc *Service) cached(ctx context.Context, id int64) (Counts, bool) {
	if svc.cache == nil {
		return Counts{}, false
	}
	h, err := svc.cache.HGetAll(ctx, cacheKey(id))
	if err != nil || len(h) == 0 {
		return Counts{}, false
	}
	likes, err1 := strconv.ParseInt(h["likes"], 10, 64)
	comments, err2 := strconv.ParseInt(h["comments"], 10, 64)
	if err1 != nil || err2 != nil {
		return Counts{}, false
	}
	return Counts{ContentID: id, LikeCount: likes, CommentCount: comments}, true
}

func (svc *Service) store(ctx context.Context, c Counts) {
	if svc.cache == nil {
		return
	}
	err := svc.cache.HSet(ctx, cacheKey(c.ContentID), map[string]string{
		"likes":    strconv.FormatInt(c.LikeCount, 10),
		"comments": strconv.FormatInt(c.CommentCount, 10),
	}, svc.ttl)
	if err != nil {
		svc.logger.Debug("engagement cache write failed", zap.Int64("content_id", c.ContentID), zap.Error(err))
	}
}
