package ranking

import (
	"testing"
	"time"

	"github.com/cinecircle/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func item(id int64, created time.Time) model.ContentItem {
	return model.ContentItem{ID: id, Title: "t", MediaType: model.MediaMovie, CreatedAt: created}
}

func ids(entries []Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Item.ID
	}
	return out
}

func TestRankScoreOrder(t *testing.T) {
	entries := []Entry{
		{Item: item(1, base), LikeCount: 5, CommentCount: 0},
		{Item: item(2, base), LikeCount: 5, CommentCount: 3},
		{Item: item(3, base), LikeCount: 2, CommentCount: 0},
	}
	got := Rank(entries, 10)
	assert.Equal(t, []int64{2, 1, 3}, ids(got))
	assert.Equal(t, []int64{13, 10, 4}, []int64{got[0].Score, got[1].Score, got[2].Score})
	assert.Zero(t, entries[0].Score, "input must not be modified")
}

func TestRankTieBreaks(t *testing.T) {
	entries := []Entry{
		{Item: item(9, base.Add(-time.Hour)), LikeCount: 1},
		{Item: item(7, base), LikeCount: 1},
		{Item: item(3, base), LikeCount: 1},
	}
	assert.Equal(t, []int64{3, 7, 9}, ids(Rank(entries, 10)))
}

func TestRankLimitAndEmpty(t *testing.T) {
	var entries []Entry
	for i := range 15 {
		entries = append(entries, Entry{Item: item(int64(i+1), base), LikeCount: int64(i)})
	}
	got := Rank(entries, 0)
	require.Len(t, got, DefaultSize)
	assert.Equal(t, int64(15), got[0].Item.ID)

	assert.Len(t, Rank(entries, 3), 3)
	empty := Rank(nil, 10)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.FixedZone("X", 5*3600))

	_, ok := AllTime.Start(now)
	assert.False(t, ok)

	start, ok := ThisMonth.Start(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), start)

	start, ok = ThisWeek.Start(now)
	require.True(t, ok)
	assert.True(t, now.Add(-7*24*time.Hour).Equal(start))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, ThisMonth, w)

	for _, s := range []string{"week", "month", "all"} {
		w, err := ParseWindow(s)
		require.NoError(t, err)
		assert.Equal(t, Window(s), w)
	}
	_, err = ParseWindow("year")
	assert.Error(t, err)
}

func TestWeekIndex(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(0), WeekIndex(anchor, anchor))
	assert.Equal(t, int64(0), WeekIndex(anchor.Add(6*24*time.Hour), anchor))
	assert.Equal(t, int64(1), WeekIndex(anchor.Add(7*24*time.Hour), anchor))
	assert.Equal(t, int64(-1), WeekIndex(anchor.Add(-time.Hour), anchor))
}

func TestStartOfYearUTC(t *testing.T) {
	late := time.Date(2025, 12, 31, 23, 0, 0, 0, time.FixedZone("W", -5*3600))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StartOfYearUTC(late))
}

func TestWeeklyPickReproducible(t *testing.T) {
	items := []model.ContentItem{
		item(1, base.Add(-3*time.Hour)),
		item(2, base.Add(-1*time.Hour)),
		item(3, base.Add(-2*time.Hour)),
	}
	anchor := StartOfYearUTC(base)
	monday := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)

	first, ok := WeeklyPick(items, monday, anchor)
	require.True(t, ok)
	again, _ := WeeklyPick(items, monday.Add(24*time.Hour), anchor)
	assert.Equal(t, first.ID, again.ID)

	// input order does not matter
	reversed := []model.ContentItem{items[2], items[1], items[0]}
	same, _ := WeeklyPick(reversed, monday, anchor)
	assert.Equal(t, first.ID, same.ID)
}

func TestWeeklyPickIndexing(t *testing.T) {
	// listing order: 2 (newest), 3, 1; equal createdAt falls back to id desc
	items := []model.ContentItem{
		item(1, base.Add(-2*time.Hour)),
		item(2, base),
		item(3, base.Add(-2*time.Hour)),
	}
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	weekStart := func(n int) time.Time { return anchor.Add(time.Duration(n) * 7 * 24 * time.Hour) }

	want := []int64{2, 3, 1, 2}
	for n, id := range want {
		got, ok := WeeklyPick(items, weekStart(n), anchor)
		require.True(t, ok)
		assert.Equal(t, id, got.ID, "week %d", n)
	}

	before, ok := WeeklyPick(items, anchor.Add(-time.Hour), anchor)
	require.True(t, ok)
	assert.Equal(t, int64(1), before.ID)
}

func TestWeeklyPickEmpty(t *testing.T) {
	_, ok := WeeklyPick(nil, base, StartOfYearUTC(base))
	assert.False(t, ok)
}
