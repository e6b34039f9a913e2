package watchlist_test

import (
	"context"
	"testing"
	"time"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/cinecircle/server/social/watchlist"
	"github.com/cinecircle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*watchlist.Service, int64, int64) {
	db := testutil.SetupTestDB(t)
	clock := func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	return watchlist.NewService(db, clock, testutil.Logger()), a.ID, b.ID
}

func TestAddAndList(t *testing.T) {
	svc, a, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, a, watchlist.Input{ExternalID: "348", MediaType: model.MediaMovie, Title: "Alien"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, a, watchlist.Input{ExternalID: "1399", MediaType: model.MediaSeries, Title: "Dark"})
	require.NoError(t, err)

	_, err = svc.Add(ctx, a, watchlist.Input{ExternalID: "348", MediaType: model.MediaMovie, Title: "Alien"})
	assert.ErrorIs(t, err, social.ErrDuplicate)

	// same id under the other media type is a different title
	_, err = svc.Add(ctx, a, watchlist.Input{ExternalID: "348", MediaType: model.MediaSeries, Title: "Other"})
	require.NoError(t, err)

	_, err = svc.Add(ctx, a, watchlist.Input{ExternalID: "1", MediaType: "book", Title: "x"})
	assert.ErrorIs(t, err, social.ErrInvalidInput)

	items, err := svc.List(ctx, a)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Other", items[0].Title)
}

func TestToggleWatchedAndRemove(t *testing.T) {
	svc, a, b := newService(t)
	ctx := context.Background()

	item, err := svc.Add(ctx, a, watchlist.Input{ExternalID: "348", MediaType: model.MediaMovie, Title: "Alien"})
	require.NoError(t, err)

	_, err = svc.ToggleWatched(ctx, item.ID, b)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)

	got, err := svc.ToggleWatched(ctx, item.ID, a)
	require.NoError(t, err)
	assert.True(t, got.Watched)
	require.NotNil(t, got.WatchedAt)

	got, err = svc.ToggleWatched(ctx, item.ID, a)
	require.NoError(t, err)
	assert.False(t, got.Watched)
	assert.Nil(t, got.WatchedAt)

	assert.ErrorIs(t, svc.Remove(ctx, item.ID, b), social.ErrNotAuthorized)
	require.NoError(t, svc.Remove(ctx, item.ID, a))
	assert.ErrorIs(t, svc.Remove(ctx, item.ID, a), social.ErrNotFound)
}
