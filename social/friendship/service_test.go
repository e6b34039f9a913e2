package friendship_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/cinecircle/server/social/friendship"
	"github.com/cinecircle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*friendship.Service, *gorm.DB, *changefeed.Feed) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	return friendship.NewService(db, feed, testutil.Logger()), db, feed
}

func TestRequestAndAcceptIsSymmetric(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RelationshipPending, rel.Status)

	rel, err = svc.Respond(ctx, rel.ID, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.RelationshipAccepted, rel.Status)

	aFriends, err := svc.FriendIDs(ctx, a.ID)
	require.NoError(t, err)
	bFriends, err := svc.FriendIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, aFriends)
	assert.Equal(t, []int64{a.ID}, bFriends)

	list, err := svc.ListFriends(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].User.Username)
	assert.Equal(t, rel.ID, list[0].RelationshipID)
}

func TestRequestSelf(t *testing.T) {
	svc, db, _ := setup(t)
	a := testutil.CreateUser(t, db, "alice")
	_, err := svc.Request(context.Background(), a.ID, a.ID)
	assert.ErrorIs(t, err, social.ErrSelfReference)
}

func TestRequestUnknownAddressee(t *testing.T) {
	svc, db, _ := setup(t)
	a := testutil.CreateUser(t, db, "alice")
	_, err := svc.Request(context.Background(), a.ID, 999)
	assert.ErrorIs(t, err, social.ErrNotFound)
}

func TestReverseRequestIsDuplicate(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	_, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Request(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, social.ErrDuplicateRequest)
	_, err = svc.Request(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, social.ErrDuplicateRequest)
}

func TestAcceptedPairBlocksRequest(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, rel.ID, b.ID, true)
	require.NoError(t, err)

	_, err = svc.Request(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, social.ErrDuplicateRequest)
}

func TestRejectedDoesNotBlockRerequest(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	rejected, err := svc.Respond(ctx, rel.ID, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.RelationshipRejected, rejected.Status)

	again, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, rel.ID, again.ID)
	assert.Equal(t, model.RelationshipPending, again.Status)
}

func TestRespondRules(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)

	t.Run("requester cannot respond", func(t *testing.T) {
		_, err := svc.Respond(ctx, rel.ID, a.ID, true)
		assert.ErrorIs(t, err, social.ErrNotAuthorized)
	})
	t.Run("stranger cannot respond", func(t *testing.T) {
		_, err := svc.Respond(ctx, rel.ID, c.ID, true)
		assert.ErrorIs(t, err, social.ErrNotAuthorized)
	})
	t.Run("missing relationship", func(t *testing.T) {
		_, err := svc.Respond(ctx, 12345, b.ID, true)
		assert.ErrorIs(t, err, social.ErrNotFound)
	})
	t.Run("no transition from rejected", func(t *testing.T) {
		_, err := svc.Respond(ctx, rel.ID, b.ID, false)
		require.NoError(t, err)
		_, err = svc.Respond(ctx, rel.ID, b.ID, true)
		assert.ErrorIs(t, err, social.ErrNotFound)
		assert.ErrorIs(t, err, social.ErrAlreadyResolved)
	})
}

func setupFile(t *testing.T) (*friendship.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupFileDB(t)
	_, ps := testutil.SetupTestCache(t)
	return friendship.NewService(db, changefeed.New(ps, testutil.Logger()), testutil.Logger()), db
}

// race starts n calls of fn together and collects their errors.
func race(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestConcurrentRespondOnlyOneWins(t *testing.T) {
	svc, db := setupFile(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)

	errs := race(6, func(i int) error {
		_, err := svc.Respond(ctx, rel.ID, b.ID, i%2 == 0)
		return err
	})

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, social.ErrAlreadyResolved)
	}
	assert.Equal(t, 1, ok)

	got, err := svc.Get(ctx, rel.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.RelationshipPending, got.Status)
}

func TestConcurrentRequestsCreateOneRow(t *testing.T) {
	svc, db := setupFile(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	// both directions at once: the pair is unordered
	errs := race(6, func(i int) error {
		from, to := a.ID, b.ID
		if i%2 == 1 {
			from, to = to, from
		}
		_, err := svc.Request(ctx, from, to)
		return err
	})

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, social.ErrDuplicateRequest)
	}
	assert.Equal(t, 1, ok)

	var n int64
	require.NoError(t, db.Model(&model.Relationship{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRemove(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, rel.ID, b.ID, true)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, rel.ID, c.ID), social.ErrNotAuthorized)
	require.NoError(t, svc.Remove(ctx, rel.ID, b.ID))
	assert.ErrorIs(t, svc.Remove(ctx, rel.ID, a.ID), social.ErrNotFound)

	friends, err := svc.FriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)

	_, err = svc.Request(ctx, b.ID, a.ID)
	assert.NoError(t, err)
}

func TestRemoveCancelsPending(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, rel.ID, a.ID))

	_, err = svc.Request(ctx, a.ID, b.ID)
	assert.NoError(t, err)
}

func TestListPending(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")

	_, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Request(ctx, c.ID, a.ID)
	require.NoError(t, err)

	p, err := svc.ListPending(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, p.Outgoing, 1)
	require.Len(t, p.Incoming, 1)
	assert.Equal(t, b.ID, p.Outgoing[0].User.ID)
	assert.Equal(t, c.ID, p.Incoming[0].User.ID)

	p, err = svc.ListPending(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, p.Incoming, 1)
	assert.Empty(t, p.Outgoing)
}

func TestSearchCandidates(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	me := testutil.CreateUser(t, db, "movielover")
	friend := testutil.CreateUser(t, db, "moviefan")
	pending := testutil.CreateUser(t, db, "movienight")
	stranger := testutil.CreateUser(t, db, "MovieBuff")
	testutil.CreateUser(t, db, "someone")

	rel, err := svc.Request(ctx, me.ID, friend.ID)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, rel.ID, friend.ID, true)
	require.NoError(t, err)
	_, err = svc.Request(ctx, pending.ID, me.ID)
	require.NoError(t, err)

	got, err := svc.SearchCandidates(ctx, me.ID, "movie", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stranger.ID, got[0].ID)

	got, err = svc.SearchCandidates(ctx, me.ID, "m", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.SearchCandidates(ctx, me.ID, "%_", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransitionsPublishEvents(t *testing.T) {
	svc, db, feed := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	events, cancel, err := feed.Subscribe(ctx, changefeed.KindRelationship)
	require.NoError(t, err)
	defer cancel()

	rel, err := svc.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, rel.ID, b.ID, true)
	require.NoError(t, err)

	want := []struct {
		op     changefeed.Op
		actor  int64
		target int64
		status string
	}{
		{changefeed.OpCreated, a.ID, b.ID, "pending"},
		{changefeed.OpUpdated, b.ID, a.ID, "accepted"},
	}
	for _, w := range want {
		select {
		case ev := <-events:
			assert.Equal(t, w.op, ev.Op)
			assert.Equal(t, w.actor, ev.ActorID)
			assert.Equal(t, w.target, ev.TargetID)
			assert.Equal(t, w.status, ev.Status)
		case <-time.After(time.Second):
			t.Fatal("missing relationship event")
		}
	}
}
