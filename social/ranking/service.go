package ranking

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/cinecircle/server/social/engagement"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ContentSource provides ranking candidates.
type ContentSource interface {
	Eligible(ctx context.Context, since *time.Time, mediaType model.MediaType) ([]model.ContentItem, error)
	All(ctx context.Context) ([]model.ContentItem, error)
}

// Aggregator provides engagement counts for a batch of items.
type Aggregator interface {
	Aggregate(ctx context.Context, ids []int64, viewerID int64) (map[int64]engagement.Counts, error)
}

// Options configures a Service.
type Options struct {
	Size  int
	Clock social.Clock
}

// Pick is the weekly pick with its engagement.
type Pick struct {
	Entry
	WeekIndex int64 `json:"week_index"`
}

// Service computes rankings from stored content. Rankings are recomputed
// on every call from the per-item engagement counts, which the engagement
// service caches and invalidates by content id. Identical concurrent
// computations are collapsed into one.
type Service struct {
	content ContentSource
	eng     Aggregator
	opts    Options
	group   singleflight.Group
	logger  *zap.Logger
}

// NewService creates a new ranking Service.
func NewService(src ContentSource, eng Aggregator, opts Options, logger *zap.Logger) *Service {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Clock == nil {
		opts.Clock = social.SystemClock
	}
	return &Service{content: src, eng: eng, opts: opts, logger: logger}
}

func flightKey(w Window, mediaType model.MediaType) string {
	t := string(mediaType)
	if t == "" {
		t = "all"
	}
	return string(w) + ":" + t
}

// Top returns the ranking for window w, restricted to mediaType unless it
// is empty. An empty candidate set yields an empty ranking.
func (svc *Service) Top(ctx context.Context, w Window, mediaType model.MediaType) ([]Entry, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("window %q: %w", w, social.ErrInvalidInput)
	}
	if mediaType != "" && !mediaType.Valid() {
		return nil, fmt.Errorf("media type %q: %w", mediaType, social.ErrInvalidInput)
	}
	v, err, shared := svc.group.Do(flightKey(w, mediaType), func() (any, error) {
		return svc.compute(context.WithoutCancel(ctx), w, mediaType)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		svc.logger.Debug("ranking computation shared", zap.String("window", string(w)))
	}
	return slices.Clone(v.([]Entry)), nil
}

func (svc *Service) compute(ctx context.Context, w Window, mediaType model.MediaType) ([]Entry, error) {
	var since *time.Time
	if start, ok := w.Start(svc.opts.Clock()); ok {
		since = &start
	}
	items, err := svc.content.Eligible(ctx, since, mediaType)
	if err != nil {
		return nil, err
	}
	entries, err := svc.withCounts(ctx, items)
	if err != nil {
		return nil, err
	}
	return Rank(entries, svc.opts.Size), nil
}

// Warm computes every window for all media types and each single type,
// which fills the engagement count cache for the candidates.
func (svc *Service) Warm(ctx context.Context) error {
	for _, w := range Windows {
		for _, t := range []model.MediaType{"", model.MediaMovie, model.MediaSeries} {
			if _, err := svc.Top(ctx, w, t); err != nil {
				return fmt.Errorf("warm %s/%s: %w", w, t, err)
			}
		}
	}
	return nil
}

// WeeklyPick returns this week's pick over the full content set, anchored
// at the start of the current UTC year. It returns nil when there is no
// content.
func (svc *Service) WeeklyPick(ctx context.Context) (*Pick, error) {
	items, err := svc.content.All(ctx)
	if err != nil {
		return nil, err
	}
	now := svc.opts.Clock()
	anchor := StartOfYearUTC(now)
	item, ok := WeeklyPick(items, now, anchor)
	if !ok {
		return nil, nil
	}
	entries, err := svc.withCounts(ctx, []model.ContentItem{item})
	if err != nil {
		return nil, err
	}
	e := entries[0]
	e.Score = Score(e.LikeCount, e.CommentCount)
	return &Pick{Entry: e, WeekIndex: WeekIndex(now, anchor)}, nil
}

func (svc *Service) withCounts(ctx context.Context, items []model.ContentItem) ([]Entry, error) {
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := svc.eng.Aggregate(ctx, ids, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(items))
	for i := range items {
		c := counts[items[i].ID]
		entries[i] = Entry{Item: items[i], LikeCount: c.LikeCount, CommentCount: c.CommentCount}
	}
	return entries, nil
}
