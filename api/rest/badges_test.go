package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social/badge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func badgeIDs(bs []badge.Badge) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func TestUserBadges(t *testing.T) {
	h := newHarness(t)
	aliceID, alice := h.user(t, "alice")
	h.recommend(t, alice, "Alien", model.MediaMovie)

	w := h.do(http.MethodGet, fmt.Sprintf("/api/users/%d/badges", aliceID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum badge.Summary
	decode(t, w, &sum)
	assert.Contains(t, badgeIDs(sum.Badges), "newbie")
	assert.Equal(t, int64(1), sum.Stats.TotalRecommendations)
	assert.NotEmpty(t, sum.Progress)

	w = h.do(http.MethodGet, "/api/users/999/badges", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/api/badges", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cat struct {
		Badges []badge.Badge `json:"badges"`
	}
	decode(t, w, &cat)
	assert.Len(t, cat.Badges, len(badge.Catalog()))
}

func TestAdminGrantBadges(t *testing.T) {
	h := newHarness(t)
	aliceID, alice := h.user(t, "alice")
	path := fmt.Sprintf("/api/admin/users/%d/badges", aliceID)
	body := map[string]any{"badges": []string{"supporter", " supporter ", "patron"}}

	w := h.do(http.MethodPut, path, "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPut, path, "", body, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Granted []string `json:"granted"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []string{"supporter", "patron"}, resp.Granted)

	w = h.do(http.MethodGet, fmt.Sprintf("/api/users/%d/badges", aliceID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum badge.Summary
	decode(t, w, &sum)
	assert.Contains(t, badgeIDs(sum.Badges), "supporter")
	assert.Contains(t, badgeIDs(sum.Badges), "patron")

	w = h.do(http.MethodPut, "/api/admin/users/999/badges", "", body, "X-Admin-Key", testAdminKey)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminScheduler(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/admin/scheduler", "", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())
}
