package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/cinecircle/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchlist(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")
	entry := map[string]any{"external_id": "348", "media_type": "movie", "title": "Alien"}

	w := h.do(http.MethodPost, "/api/watchlist", alice, entry)
	require.Equal(t, http.StatusCreated, w.Code)
	var added struct {
		Item model.WatchlistItem `json:"item"`
	}
	decode(t, w, &added)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/watchlist", alice, entry).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/watchlist", alice, map[string]any{"title": "x"}).Code)

	watched := fmt.Sprintf("/api/watchlist/%d/watched", added.Item.ID)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, watched, bob, nil).Code)
	w = h.do(http.MethodPost, watched, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Item model.WatchlistItem `json:"item"`
	}
	decode(t, w, &toggled)
	assert.True(t, toggled.Item.Watched)

	w = h.do(http.MethodGet, "/api/watchlist", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Watchlist []model.WatchlistItem `json:"watchlist"`
	}
	decode(t, w, &list)
	require.Len(t, list.Watchlist, 1)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, fmt.Sprintf("/api/watchlist/%d", added.Item.ID), alice, nil).Code)
}

func TestCatalogSearch(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")

	w := h.do(http.MethodGet, "/api/catalog/search?q=a", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/catalog/search?q=alien", alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
