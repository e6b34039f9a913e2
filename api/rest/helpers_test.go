package rest_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cinecircle/server/api/rest"
	"github.com/cinecircle/server/catalog"
	"github.com/cinecircle/server/changefeed"
	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social/badge"
	"github.com/cinecircle/server/social/content"
	"github.com/cinecircle/server/social/engagement"
	"github.com/cinecircle/server/social/friendship"
	"github.com/cinecircle/server/social/goal"
	"github.com/cinecircle/server/social/group"
	"github.com/cinecircle/server/social/message"
	"github.com/cinecircle/server/social/notify"
	"github.com/cinecircle/server/social/profile"
	"github.com/cinecircle/server/social/ranking"
	"github.com/cinecircle/server/social/stats"
	"github.com/cinecircle/server/social/watchlist"
	"github.com/cinecircle/server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-secret"
	testAdminKey = "admin-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	r  *gin.Engine
	db *gorm.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := testutil.Logger()
	feed := changefeed.New(ps, logger)

	contentSvc := content.NewService(db, feed, logger)
	eng := engagement.NewService(db, c, time.Minute, feed, logger)
	friends := friendship.NewService(db, feed, logger)
	svcs := rest.Services{
		Friends:    friends,
		Content:    contentSvc,
		Engagement: eng,
		Ranking:    ranking.NewService(contentSvc, eng, ranking.Options{}, logger),
		Badges:     badge.NewService(db, stats.NewBuilder(db, logger), badge.NewEvaluator(badge.Rules{}), logger),
		Inbox:      notify.NewInbox(db, logger),
		Messages:   message.NewService(db, feed, logger),
		Watchlist:  watchlist.NewService(db, nil, logger),
		Groups:     group.NewService(db, friends, feed, logger),
		Goals:      goal.NewService(db, friends, logger),
		Profiles:   profile.NewService(db, logger),
		Catalog:    catalog.NewClient(catalog.Config{}, nil, logger),
	}

	r := gin.New()
	rest.Register(
		r.Group("/api", mw.Auth(testSecret)),
		r.Group("/api/admin", mw.AdminAuth(testAdminKey, nil)),
		svcs, logger,
	)
	return &harness{r: r, db: db}
}

// user creates a user and returns its id and a bearer token.
func (h *harness) user(t *testing.T, name string) (int64, string) {
	t.Helper()
	u := testutil.CreateUser(t, h.db, name)
	tok, err := mw.GenerateToken(u.ID, testSecret, time.Hour)
	require.NoError(t, err)
	return u.ID, tok
}

// token signs a bearer token for id without creating a user row.
func (h *harness) token(t *testing.T, id int64) string {
	t.Helper()
	tok, err := mw.GenerateToken(id, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func (h *harness) recommend(t *testing.T, token, title string, media model.MediaType) int64 {
	t.Helper()
	w := h.do(http.MethodPost, "/api/recommendations", token, map[string]any{"title": title, "media_type": media})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Recommendation model.ContentItem `json:"recommendation"`
	}
	decode(t, w, &resp)
	return resp.Recommendation.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
