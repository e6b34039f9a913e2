package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/cinecircle/server/social/friendship"
	"github.com/cinecircle/server/social/group"
	"github.com/cinecircle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc  *group.Service
	db   *gorm.DB
	feed *changefeed.Feed
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	feed := changefeed.New(ps, testutil.Logger())
	friends := friendship.NewService(db, feed, testutil.Logger())
	return fixture{svc: group.NewService(db, friends, feed, testutil.Logger()), db: db, feed: feed}
}

func befriend(t *testing.T, db *gorm.DB, a, b int64) {
	t.Helper()
	key := model.PairKey(a, b)
	require.NoError(t, db.Create(&model.Relationship{
		RequesterID: a, AddresseeID: b, Status: model.RelationshipAccepted, ActiveKey: &key,
	}).Error)
}

func TestCreateMakesCreatorAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "alice")

	_, err := f.svc.Create(ctx, a.ID, "   ", "")
	assert.ErrorIs(t, err, social.ErrInvalidInput)

	g, err := f.svc.Create(ctx, a.ID, " Noche de terror ", " solo clásicos ")
	require.NoError(t, err)
	assert.Equal(t, "Noche de terror", g.Name)
	assert.Equal(t, "solo clásicos", g.Description)

	d, err := f.svc.Get(ctx, g.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, d.Members, 1)
	assert.Equal(t, "alice", d.Members[0].User.Username)
	assert.Equal(t, model.GroupRoleAdmin, d.Members[0].Role)
}

func TestOnlyMembersSeeTheGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "alice")
	b := testutil.CreateUser(t, f.db, "bob")
	g, err := f.svc.Create(ctx, a.ID, "Cine", "")
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, g.ID, b.ID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
	_, err = f.svc.Post(ctx, g.ID, b.ID, "hola")
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
	_, err = f.svc.Recommendations(ctx, g.ID, b.ID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
	_, err = f.svc.Get(ctx, 404, a.ID)
	assert.ErrorIs(t, err, social.ErrNotFound)
}

func TestInviteFriends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "alice")
	b := testutil.CreateUser(t, f.db, "bob")
	c := testutil.CreateUser(t, f.db, "carol")
	stranger := testutil.CreateUser(t, f.db, "zed")
	befriend(t, f.db, a.ID, b.ID)
	befriend(t, f.db, c.ID, a.ID)
	g, err := f.svc.Create(ctx, a.ID, "Cine", "")
	require.NoError(t, err)

	events, cancel, err := f.feed.Subscribe(ctx, changefeed.KindGroup)
	require.NoError(t, err)
	defer cancel()

	cands, err := f.svc.Invitable(ctx, g.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "bob", cands[0].Username)
	assert.Equal(t, "carol", cands[1].Username)

	_, err = f.svc.Invite(ctx, g.ID, a.ID, stranger.ID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
	_, err = f.svc.Invite(ctx, g.ID, a.ID, a.ID)
	assert.ErrorIs(t, err, social.ErrSelfReference)

	m, err := f.svc.Invite(ctx, g.ID, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GroupRoleMember, m.Role)
	_, err = f.svc.Invite(ctx, g.ID, a.ID, b.ID)
	assert.ErrorIs(t, err, social.ErrDuplicate)

	select {
	case ev := <-events:
		assert.Equal(t, changefeed.OpCreated, ev.Op)
		assert.Equal(t, g.ID, ev.GroupID)
		assert.Equal(t, b.ID, ev.TargetID)
		assert.Equal(t, group.StatusMember, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("no invite event")
	}

	cands, err = f.svc.Invitable(ctx, g.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "carol", cands[0].Username)

	// bob can only invite his own friends
	_, err = f.svc.Invite(ctx, g.ID, b.ID, c.ID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
}

func TestRecommendationsAndChat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "alice")
	g, err := f.svc.Create(ctx, a.ID, "Cine", "")
	require.NoError(t, err)

	_, err = f.svc.Recommend(ctx, g.ID, a.ID, group.RecommendationInput{Title: "Alien", MediaType: "book"})
	assert.ErrorIs(t, err, social.ErrInvalidInput)

	_, err = f.svc.Recommend(ctx, g.ID, a.ID, group.RecommendationInput{Title: "Alien", MediaType: model.MediaMovie, Rating: 9})
	require.NoError(t, err)
	rec, err := f.svc.Recommend(ctx, g.ID, a.ID, group.RecommendationInput{Title: " Dark ", MediaType: model.MediaSeries, Rating: 4, Comment: " muy buena "})
	require.NoError(t, err)
	assert.Equal(t, "Dark", rec.Title)
	assert.Equal(t, "muy buena", rec.Comment)

	recs, err := f.svc.Recommendations(ctx, g.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Dark", recs[0].Title)
	assert.Equal(t, group.MaxRating, recs[1].Rating)
	assert.Equal(t, "alice", recs[0].Author.Username)

	_, err = f.svc.Post(ctx, g.ID, a.ID, "  ")
	assert.ErrorIs(t, err, social.ErrInvalidInput)
	for _, body := range []string{"uno", "dos", "tres"} {
		_, err := f.svc.Post(ctx, g.ID, a.ID, body)
		require.NoError(t, err)
	}
	msgs, err := f.svc.Messages(ctx, g.ID, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "dos", msgs[0].Body)
	assert.Equal(t, "tres", msgs[1].Body)
	assert.Equal(t, "alice", msgs[1].Author.Username)

	list, err := f.svc.List(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].MemberCount)
	assert.Equal(t, "Dark", list[0].LastRecommendation)
	require.NotNil(t, list[0].LastActivity)
	assert.False(t, list[0].LastActivity.Before(msgs[1].CreatedAt))
}

func TestListOnlyMemberGroups(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "alice")
	b := testutil.CreateUser(t, f.db, "bob")
	befriend(t, f.db, a.ID, b.ID)

	first, err := f.svc.Create(ctx, a.ID, "Primero", "")
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, a.ID, "Segundo", "")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, b.ID, "De Bob", "")
	require.NoError(t, err)
	_, err = f.svc.Invite(ctx, first.ID, a.ID, b.ID)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, int64(1), list[0].MemberCount)
	assert.Nil(t, list[0].LastActivity)
	assert.Equal(t, int64(2), list[1].MemberCount)

	list, err = f.svc.List(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestLeave(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "alice")
	b := testutil.CreateUser(t, f.db, "bob")
	befriend(t, f.db, a.ID, b.ID)
	g, err := f.svc.Create(ctx, a.ID, "Cine", "")
	require.NoError(t, err)
	_, err = f.svc.Invite(ctx, g.ID, a.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, g.ID, a.ID, "hola")
	require.NoError(t, err)

	require.NoError(t, f.svc.Leave(ctx, g.ID, a.ID))
	_, err = f.svc.Get(ctx, g.ID, a.ID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
	assert.ErrorIs(t, f.svc.Leave(ctx, g.ID, a.ID), social.ErrNotAuthorized)

	// the last member out takes the group with it
	require.NoError(t, f.svc.Leave(ctx, g.ID, b.ID))
	_, err = f.svc.Get(ctx, g.ID, b.ID)
	assert.ErrorIs(t, err, social.ErrNotFound)
	var left int64
	require.NoError(t, f.db.Model(&model.GroupMessage{}).Where("group_id = ?", g.ID).Count(&left).Error)
	assert.Zero(t, left)
}
