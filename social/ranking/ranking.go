// Package ranking orders content by engagement score and selects the
// weekly pick.
package ranking

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
)

// DefaultSize is the length of a ranking when none is configured.
const DefaultSize = 10

const week = 7 * 24 * time.Hour

// Window restricts the candidate set by creation time.
type Window string

const (
	AllTime   Window = "all"
	ThisMonth Window = "month"
	ThisWeek  Window = "week"
)

// Windows lists every window in display order.
var Windows = []Window{ThisWeek, ThisMonth, AllTime}

func (w Window) Valid() bool {
	switch w {
	case AllTime, ThisMonth, ThisWeek:
		return true
	}
	return false
}

// ParseWindow maps a query value to a Window; empty means ThisMonth.
func ParseWindow(s string) (Window, error) {
	if s == "" {
		return ThisMonth, nil
	}
	w := Window(s)
	if !w.Valid() {
		return "", fmt.Errorf("period %q: %w", s, social.ErrInvalidInput)
	}
	return w, nil
}

// Start returns the inclusive lower creation bound of w at now, or false
// when the window is unbounded. Month boundaries are computed in UTC.
func (w Window) Start(now time.Time) (time.Time, bool) {
	now = now.UTC()
	switch w {
	case AllTime:
		return time.Time{}, false
	case ThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	case ThisWeek:
		return now.Add(-week), true
	}
	return time.Time{}, false
}

// Entry is a ranked item with the components of its score.
type Entry struct {
	Item         model.ContentItem `json:"item"`
	LikeCount    int64             `json:"like_count"`
	CommentCount int64             `json:"comment_count"`
	Score        int64             `json:"score"`
}

// Score weighs a like twice as much as a comment.
func Score(likes, comments int64) int64 {
	return likes*2 + comments
}

// Rank scores entries and returns the best limit of them: score descending,
// then newer createdAt, then lower id. The input slice is not modified.
func Rank(entries []Entry, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultSize
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Score = Score(e.LikeCount, e.CommentCount)
		out[i] = e
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.Item.CreatedAt.Compare(a.Item.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Item.ID, b.Item.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StartOfYearUTC returns January 1st 00:00 UTC of t's year in UTC.
func StartOfYearUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// WeekIndex is the number of whole weeks between anchor and now, floored.
func WeekIndex(now, anchor time.Time) int64 {
	d := now.Sub(anchor)
	idx := int64(d / week)
	if d < 0 && d%week != 0 {
		idx--
	}
	return idx
}

// WeeklyPick selects items[WeekIndex(now, anchor) mod n] from the items in
// listing order (createdAt descending, id descending). The choice depends
// only on its arguments. It returns false for an empty set.
func WeeklyPick(items []model.ContentItem, now, anchor time.Time) (model.ContentItem, bool) {
	n := int64(len(items))
	if n == 0 {
		return model.ContentItem{}, false
	}
	ordered := slices.Clone(items)
	slices.SortFunc(ordered, func(a, b model.ContentItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	i := ((WeekIndex(now, anchor) % n) + n) % n
	return ordered[i], true
}
