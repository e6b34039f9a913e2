package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/cinecircle/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	h := newHarness(t)
	aliceID, alice := h.user(t, "alice")
	bobID, bob := h.user(t, "bob")

	w := h.do(http.MethodPost, "/api/messages", alice, map[string]any{"receiver_id": aliceID, "body": "me"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/messages", alice, map[string]any{"receiver_id": 999, "body": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/messages", alice, map[string]any{"receiver_id": bobID, "body": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	var count struct {
		Count int64 `json:"count"`
	}
	decode(t, h.do(http.MethodGet, "/api/messages/unread", bob, nil), &count)
	assert.Equal(t, int64(1), count.Count)

	w = h.do(http.MethodGet, fmt.Sprintf("/api/messages/%d", aliceID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conv struct {
		Messages []model.Message `json:"messages"`
	}
	decode(t, w, &conv)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hi bob", conv.Messages[0].Body)

	decode(t, h.do(http.MethodGet, "/api/messages/unread", bob, nil), &count)
	assert.Zero(t, count.Count)
}
