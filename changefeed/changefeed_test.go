package changefeed_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/cinecircle/server/cache"
	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := changefeed.Event{
		Kind: changefeed.KindLike, Op: changefeed.OpCreated,
		ID: 7, ActorID: 1, ContentID: 3, At: at,
	}
	payload, err := changefeed.Encode(ev)
	require.NoError(t, err)

	got, err := changefeed.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, ev.Kind, got.Kind)
	assert.Equal(t, ev.ContentID, got.ContentID)
	assert.True(t, at.Equal(got.At))
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := changefeed.Decode(`{"kind":"poke","op":"created","id":1}`)
	assert.Error(t, err)

	_, err = changefeed.Decode(`{"kind":"like","op":"exploded","id":1}`)
	assert.Error(t, err)

	_, err = changefeed.Decode(`not json`)
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	ctx := context.Background()

	events, cancel, err := feed.Subscribe(ctx, changefeed.KindComment, changefeed.KindLike)
	require.NoError(t, err)
	defer cancel()

	feed.Publish(ctx, changefeed.Event{Kind: changefeed.KindContent, Op: changefeed.OpCreated, ID: 1})
	feed.Publish(ctx, changefeed.Event{Kind: changefeed.KindComment, Op: changefeed.OpCreated, ID: 2, ContentID: 9})

	select {
	case ev := <-events:
		assert.Equal(t, changefeed.KindComment, ev.Kind)
		assert.Equal(t, int64(2), ev.ID)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestSubscribeSkipsGarbage(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	ctx := context.Background()

	events, cancel, err := feed.Subscribe(ctx, changefeed.KindMessage)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, changefeed.KindMessage.Channel(), "{broken"))
	feed.Publish(ctx, changefeed.Event{Kind: changefeed.KindMessage, Op: changefeed.OpCreated, ID: 5})

	select {
	case ev := <-events:
		assert.Equal(t, int64(5), ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestSubscribeUnknownKind(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	_, _, err := feed.Subscribe(context.Background(), changefeed.Kind("bogus"))
	assert.Error(t, err)
}

func TestNilFeedPublishIsNoop(t *testing.T) {
	var feed *changefeed.Feed
	assert.NotPanics(t, func() {
		feed.Publish(context.Background(), changefeed.Event{Kind: changefeed.KindLike, Op: changefeed.OpCreated})
	})
}

func TestCancelReleasesStalledSubscriber(t *testing.T) {
	store := cache.NewMemory(cache.Config{SubscriberBuffer: 1})
	defer store.Close()
	feed := changefeed.New(store, testutil.Logger())
	ctx := context.Background()
	before := runtime.NumGoroutine()

	cancels := make([]func(), 0, 20)
	for range 20 {
		events, cancel, err := feed.Subscribe(ctx, changefeed.KindLike)
		require.NoError(t, err)
		require.NotNil(t, events)
		cancels = append(cancels, cancel)
	}
	for i := range 4 {
		feed.Publish(ctx, changefeed.Event{Kind: changefeed.KindLike, Op: changefeed.OpCreated, ID: int64(i + 1)})
	}
	// nobody reads; every forwarder is stuck on a full channel
	time.Sleep(20 * time.Millisecond)
	for _, cancel := range cancels {
		cancel()
		cancel()
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestContextDoneClosesEvents(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	ctx, stop := context.WithCancel(context.Background())

	events, cancel, err := feed.Subscribe(ctx, changefeed.KindMessage)
	require.NoError(t, err)
	defer cancel()
	stop()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events not closed after context done")
	}
}
