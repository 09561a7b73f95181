package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
	"token-intel/internal/storage"
)

func TestChatStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChatStore(pool)

	chat := &domain.Chat{ID: "chat-1", UserID: "user-1", Title: "PEPE research"}
	require.NoError(t, store.CreateChat(ctx, chat))

	got, err := store.GetChat(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "PEPE research", got.Title)
	assert.Equal(t, domain.VisibilityPrivate, got.Visibility)
	assert.NotZero(t, got.CreatedAt)
	assert.Empty(t, got.Messages)

	err = store.CreateChat(ctx, chat)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetChat(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatStore_AppendMessages(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChatStore(pool)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateChat(ctx, &domain.Chat{ID: "chat-1", UserID: "u", CreatedAt: base}))

	msgs := []*domain.Message{
		{ID: "m1", Role: "user", Content: json.RawMessage(`"analyze PEPE"`), CreatedAt: base.Add(time.Second)},
		{ID: "m2", Role: "assistant", Content: json.RawMessage(`{"finish_reason":"partial","error":"upstream error"}`), CreatedAt: base.Add(2 * time.Second)},
	}
	require.NoError(t, store.AppendMessages(ctx, "chat-1", msgs))

	got, err := store.Messages(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "chat-1", got[0].ChatID)
	assert.JSONEq(t, `"analyze PEPE"`, string(got[0].Content))
	assert.JSONEq(t, `{"finish_reason":"partial","error":"upstream error"}`, string(got[1].Content))

	chat, err := store.GetChat(ctx, "chat-1")
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 2)
	assert.True(t, chat.UpdatedAt.After(base))

	// Duplicate rolls back the whole batch.
	err = store.AppendMessages(ctx, "chat-1", []*domain.Message{
		{ID: "m3", Role: "user", Content: json.RawMessage(`"x"`)},
		{ID: "m1", Role: "user", Content: json.RawMessage(`"y"`)},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	got, err = store.Messages(ctx, "chat-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	err = store.AppendMessages(ctx, "missing", msgs)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Messages(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChatStore_ListUpdateDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChatStore(pool)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateChat(ctx, &domain.Chat{ID: id, UserID: "u1", CreatedAt: ts, UpdatedAt: ts}))
	}
	require.NoError(t, store.CreateChat(ctx, &domain.Chat{ID: "other", UserID: "u2"}))

	chats, err := store.ListChats(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{chats[0].ID, chats[1].ID, chats[2].ID})

	// Renaming moves a chat to the top.
	require.NoError(t, store.UpdateTitle(ctx, "a", "renamed"))
	chats, err = store.ListChats(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "a", chats[0].ID)
	assert.Equal(t, "renamed", chats[0].Title)

	require.NoError(t, store.AppendMessages(ctx, "b", []*domain.Message{{ID: "mb", Role: "user", Content: json.RawMessage(`"hi"`)}}))
	require.NoError(t, store.DeleteChat(ctx, "b"))
	_, err = store.GetChat(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE chat_id = 'b'`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, store.DeleteChat(ctx, "b"), storage.ErrNotFound)
	assert.ErrorIs(t, store.UpdateTitle(ctx, "b", "x"), storage.ErrNotFound)
}
