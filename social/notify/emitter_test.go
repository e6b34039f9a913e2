package notify

import (
	"context"
	"testing"
	"time"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterFlushesOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := NewEmitter(db, nil, EmitterOptions{FlushInterval: time.Hour}, testutil.Logger())

	for i := range 10 {
		require.True(t, e.Emit(model.Notification{RecipientID: 1, Type: model.NotifyLike, SourceUserID: int64(i + 2)}))
	}
	e.Stop(context.Background())

	var count int64
	db.Model(&model.Notification{}).Count(&count)
	assert.Equal(t, int64(10), count)

	assert.False(t, e.Emit(model.Notification{RecipientID: 1, Type: model.NotifyLike}))
	assert.NotPanics(t, func() { e.Stop(context.Background()) })
}

func TestEmitterBatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := NewEmitter(db, nil, EmitterOptions{BatchSize: 5, FlushInterval: time.Hour}, testutil.Logger())
	defer e.Stop(context.Background())

	for range 5 {
		e.Emit(model.Notification{RecipientID: 1, Type: model.NotifyComment, SourceUserID: 2})
	}
	require.Eventually(t, func() bool {
		var count int64
		db.Model(&model.Notification{}).Count(&count)
		return count == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmitterDropsWhenQueueFull(t *testing.T) {
	e := &Emitter{
		ch:     make(chan *model.Notification, 1),
		stopCh: make(chan struct{}),
		logger: testutil.Logger(),
	}
	assert.True(t, e.Emit(model.Notification{RecipientID: 1}))
	assert.False(t, e.Emit(model.Notification{RecipientID: 1}))
}

func TestEmitterRetriesFailedBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&model.Notification{}))

	e := NewEmitter(db, nil, EmitterOptions{
		FlushInterval:    10 * time.Millisecond,
		RetryInitialWait: 20 * time.Millisecond,
		RetryMaxElapsed:  5 * time.Second,
	}, testutil.Logger())
	defer e.Stop(context.Background())

	e.Emit(model.Notification{RecipientID: 1, Type: model.NotifyMessage, SourceUserID: 2})
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, db.Migrator().CreateTable(&model.Notification{}))

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&model.Notification{}).Count(&count)
		return count == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEmitterPublishesStored(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	ctx := context.Background()

	events, cancel, err := feed.Subscribe(ctx, changefeed.KindNotification)
	require.NoError(t, err)
	defer cancel()

	e := NewEmitter(db, feed, EmitterOptions{FlushInterval: 10 * time.Millisecond}, testutil.Logger())
	defer e.Stop(ctx)
	cid := int64(9)
	e.Emit(model.Notification{RecipientID: 3, Type: model.NotifyLike, SourceUserID: 4, RelatedContentID: &cid, Message: "Alien"})

	select {
	case ev := <-events:
		assert.NotZero(t, ev.ID)
		assert.Equal(t, int64(3), ev.TargetID)
		assert.Equal(t, "like", ev.Status)
		assert.Equal(t, cid, ev.ContentID)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification event")
	}
}

func TestEmitterStopHonoursDeadline(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&model.Notification{}))

	e := NewEmitter(db, nil, EmitterOptions{
		FlushInterval:    time.Hour,
		RetryInitialWait: 10 * time.Millisecond,
		RetryMaxElapsed:  time.Minute,
	}, testutil.Logger())
	e.Emit(model.Notification{RecipientID: 1, Type: model.NotifyLike, SourceUserID: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	e.Stop(ctx)
	assert.Less(t, time.Since(start), 5*time.Second)
}
