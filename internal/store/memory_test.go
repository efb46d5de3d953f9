package store

import (
	"context"
	"testing"
	"time"

	"chat-relay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	m.AddUser(&models.User{ID: 1, Username: "alice"})
	m.AddUser(&models.User{ID: 2, Username: "bob"})
	m.AddUser(&models.User{ID: 3, Username: "carol"})
	m.AddChat(&models.Chat{
		ID:             10,
		Type:           models.ChatTypeDirect,
		ParticipantIDs: []int{1, 2},
	})
	return m
}

func mustCreate(t *testing.T, m *Memory, chatID, senderID int, content string) *models.Message {
	t.Helper()
	msg, err := m.CreateMessage(context.Background(), &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		Type:     models.MessageTypeText,
	})
	require.NoError(t, err)
	return msg
}

func TestCreateMessageAssignsOrderedIDs(t *testing.T) {
	m := seedMemory(t)

	first := mustCreate(t, m, 10, 1, "one")
	second := mustCreate(t, m, 10, 1, "two")

	assert.Greater(t, second.ID, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestSetReactionOverwritesPerUser(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "hello")

	require.NoError(t, m.SetReaction(ctx, msg.ID, 2, "👍", time.Now()))
	require.NoError(t, m.SetReaction(ctx, msg.ID, 2, "❤️", time.Now()))

	reactions, err := m.ListReactions(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "❤️", reactions[0].Emoji)
	assert.Equal(t, 2, reactions[0].UserID)
}

func TestReactionsFromDifferentUsersCoexist(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "hello")

	require.NoError(t, m.SetReaction(ctx, msg.ID, 1, "👍", time.Now()))
	require.NoError(t, m.SetReaction(ctx, msg.ID, 2, "👍", time.Now()))

	reactions, err := m.ListReactions(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, reactions, 2)
}

func TestRemoveReaction(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "hello")

	require.NoError(t, m.SetReaction(ctx, msg.ID, 2, "👍", time.Now()))
	require.NoError(t, m.RemoveReaction(ctx, msg.ID, 2))
	// Removing an absent reaction is a no-op.
	require.NoError(t, m.RemoveReaction(ctx, msg.ID, 2))

	reactions, err := m.ListReactions(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, reactions)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "hello")

	affected, err := m.MarkRead(ctx, 10, 2, []int{msg.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{msg.ID}, affected)

	affected, err = m.MarkRead(ctx, 10, 2, []int{msg.ID})
	require.NoError(t, err)
	assert.Empty(t, affected)
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "hello")

	affected, err := m.MarkRead(ctx, 10, 1, []int{msg.ID})
	require.NoError(t, err)
	assert.Empty(t, affected)
}

func TestMarkReadSkipsForeignChatMessages(t *testing.T) {
	m := seedMemory(t)
	m.AddChat(&models.Chat{ID: 20, Type: models.ChatTypeDirect, ParticipantIDs: []int{1, 3}})
	ctx := context.Background()
	msg := mustCreate(t, m, 20, 1, "hello")

	affected, err := m.MarkRead(ctx, 10, 2, []int{msg.ID})
	require.NoError(t, err)
	assert.Empty(t, affected)
}

func TestListUnreadMessageIDs(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	a := mustCreate(t, m, 10, 1, "one")
	b := mustCreate(t, m, 10, 1, "two")
	mine := mustCreate(t, m, 10, 2, "mine")

	_, err := m.MarkRead(ctx, 10, 2, []int{a.ID})
	require.NoError(t, err)

	ids, err := m.ListUnreadMessageIDs(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{b.ID}, ids)
	assert.NotContains(t, ids, mine.ID)
}

func TestDeleteMessageForEveryone(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "secret")

	require.NoError(t, m.DeleteMessageForEveryone(ctx, msg.ID))

	got, err := m.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.Equal(t, models.DeletedPlaceholder, got.Content)
}

func TestEditMessage(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "typo")

	now := time.Now()
	require.NoError(t, m.EditMessage(ctx, msg.ID, "fixed", now))

	got, err := m.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Content)
	assert.True(t, got.Edited)
	require.NotNil(t, got.EditedAt)
}

func TestEditMessageRefusesDeleted(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "secret")

	require.NoError(t, m.DeleteMessageForEveryone(ctx, msg.ID))

	err := m.EditMessage(ctx, msg.ID, "resurrect", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := m.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletedPlaceholder, got.Content)
}

func TestMarkDeliveredRecordsRecipients(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()
	msg := mustCreate(t, m, 10, 1, "hello")

	require.NoError(t, m.MarkDelivered(ctx, msg.ID, []int{2, 3}))

	got, err := m.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.DeliveredTo)
}

func TestGetMessageByIDNotFound(t *testing.T) {
	m := seedMemory(t)

	_, err := m.GetMessageByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetContactIDs(t *testing.T) {
	m := seedMemory(t)
	m.AddChat(&models.Chat{ID: 20, Type: models.ChatTypeGroup, Name: "team", ParticipantIDs: []int{1, 3}})

	ids, err := m.GetContactIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ids)
}

func TestParticipantMutation(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	require.NoError(t, m.AddParticipant(ctx, 10, 3))
	chat, err := m.GetChatByID(ctx, 10)
	require.NoError(t, err)
	assert.True(t, chat.IsParticipant(3))

	require.NoError(t, m.RemoveParticipant(ctx, 10, 3))
	chat, err = m.GetChatByID(ctx, 10)
	require.NoError(t, err)
	assert.False(t, chat.IsParticipant(3))
}

func TestUpdateLastSeen(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	at := time.Now()
	require.NoError(t, m.UpdateLastSeen(ctx, 1, at))

	u, err := m.GetUserByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u.LastSeen)
	assert.WithinDuration(t, at, *u.LastSeen, time.Second)
}
