package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/store"
	"chat-relay/pkg/logger"
)

func (r *Router) handleJoinChat(c *Client, raw []byte) error {
	var p models.JoinChatPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		return &models.ValidationError{Reason: "chatId required"}
	}

	chat, err := r.getChat(context.Background(), p.ChatID)
	if err != nil {
		return err
	}
	if !chat.IsParticipant(c.userID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}

	r.g.rooms.Subscribe(p.ChatID, c)
	return nil
}

func (r *Router) handleLeaveChat(c *Client, raw []byte) error {
	var p models.LeaveChatPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		return &models.ValidationError{Reason: "chatId required"}
	}

	r.g.rooms.Unsubscribe(p.ChatID, c.sessionID)
	return nil
}

func (r *Router) handleSendMessage(c *Client, raw []byte) (string, error) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", &models.ValidationError{Reason: "malformed payload"}
	}
	if p.ChatID == 0 {
		return p.TempID, &models.ValidationError{Reason: "chatId required"}
	}
	if strings.TrimSpace(p.Content) == "" && p.File == "" {
		return p.TempID, &models.ValidationError{Reason: "empty content"}
	}

	// Membership is checked against the live room, not re-queried from the
	// store, so a concurrent removal that already resynced wins.
	if !r.g.rooms.IsSubscribed(p.ChatID, c.sessionID) {
		return p.TempID, &models.AuthorizationError{Reason: "not a member of this chat"}
	}

	ctx := context.Background()
	chat, err := r.getChat(ctx, p.ChatID)
	if err != nil {
		return p.TempID, err
	}
	if chat.IsGroup() && chat.OnlyAdminsCanMessage && !chat.IsAdmin(c.userID) {
		return p.TempID, &models.AuthorizationError{Reason: "only admins can send messages in this chat"}
	}

	msgType := p.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	msg := &models.Message{
		ChatID:    p.ChatID,
		SenderID:  c.userID,
		Content:   p.Content,
		Type:      msgType,
		ReplyToID: p.ReplyTo,
		FileURL:   p.File,
	}

	// The lock is released by defer so a panicking store or broadcast can
	// never strand the chat's send path.
	lock := r.chatLock(p.ChatID)
	lock.Lock()
	defer lock.Unlock()

	persisted, err := r.g.store.CreateMessage(ctx, msg)
	if err != nil {
		return p.TempID, &models.StoreError{Op: "create message", Err: err}
	}
	if err := r.g.store.TouchChat(ctx, p.ChatID, persisted.CreatedAt); err != nil {
		logger.Error("touching chat %d: %v", p.ChatID, err)
	}

	// Mark the message delivered to every participant reachable right now.
	var delivered []int
	for _, pid := range chat.ParticipantIDs {
		if pid != c.userID && r.g.presence.IsOnline(pid) {
			delivered = append(delivered, pid)
		}
	}
	if len(delivered) > 0 {
		if err := r.g.store.MarkDelivered(ctx, persisted.ID, delivered); err != nil {
			logger.Error("marking message %d delivered: %v", persisted.ID, err)
		} else {
			persisted.DeliveredTo = delivered
		}
	}

	r.g.typing.Stop(p.ChatID, c.userID)

	r.g.rooms.Broadcast(p.ChatID, encode(models.NewMessageEvent{
		Event:   models.EventNewMessage,
		Message: persisted,
	}), c.sessionID)

	c.Enqueue(encode(models.MessageSentEvent{
		Event:   models.EventMessageSent,
		TempID:  p.TempID,
		Message: persisted,
	}))
	return p.TempID, nil
}

func (r *Router) handleEditMessage(c *Client, raw []byte) error {
	var p models.EditMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == 0 {
		return &models.ValidationError{Reason: "messageId required"}
	}
	if strings.TrimSpace(p.Content) == "" {
		return &models.ValidationError{Reason: "empty content"}
	}

	ctx := context.Background()
	msg, err := r.getMessage(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if msg.SenderID != c.userID {
		return &models.AuthorizationError{Reason: "only the sender can edit a message"}
	}
	if msg.Deleted {
		return &models.ValidationError{Reason: "message was deleted"}
	}
	if msg.Type == models.MessageTypeSystem {
		return &models.ValidationError{Reason: "cannot edit a system message"}
	}

	now := time.Now()
	if err := r.g.store.EditMessage(ctx, p.MessageID, p.Content, now); err != nil {
		// A delete that raced past the check above wins; the tombstone stays.
		if errors.Is(err, store.ErrNotFound) {
			return &models.ValidationError{Reason: "message was deleted"}
		}
		return &models.StoreError{Op: "edit message", Err: err}
	}

	r.g.rooms.Broadcast(msg.ChatID, encode(models.MessageEditedEvent{
		Event:     models.EventMessageEdited,
		MessageID: p.MessageID,
		ChatID:    msg.ChatID,
		Content:   p.Content,
		EditedAt:  now,
	}))
	return nil
}

func (r *Router) handleDeleteMessage(c *Client, raw []byte) error {
	var p models.DeleteMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == 0 {
		return &models.ValidationError{Reason: "messageId required"}
	}

	ctx := context.Background()
	msg, err := r.getMessage(ctx, p.MessageID)
	if err != nil {
		return err
	}

	deleted := encode(models.MessageDeletedEvent{
		Event:     models.EventMessageDeleted,
		MessageID: p.MessageID,
		ChatID:    msg.ChatID,
	})

	if p.DeleteForEveryone {
		if msg.SenderID != c.userID {
			return &models.AuthorizationError{Reason: "only the sender can delete for everyone"}
		}
		// Retrying a delete-for-everyone is a no-op, not an error.
		if msg.Deleted {
			c.Enqueue(deleted)
			return nil
		}
		if err := r.g.store.DeleteMessageForEveryone(ctx, p.MessageID); err != nil {
			return &models.StoreError{Op: "delete message", Err: err}
		}
		r.g.rooms.Broadcast(msg.ChatID, deleted)
		return nil
	}

	if !r.g.rooms.IsSubscribed(msg.ChatID, c.sessionID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}
	if err := r.g.store.HideMessageForUser(ctx, p.MessageID, c.userID); err != nil {
		return &models.StoreError{Op: "hide message", Err: err}
	}
	// Visible only to the caller; no room broadcast.
	c.Enqueue(deleted)
	return nil
}

func (r *Router) handleAddReaction(c *Client, raw []byte) error {
	var p models.AddReactionPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == 0 {
		return &models.ValidationError{Reason: "messageId required"}
	}
	if p.Emoji == "" {
		return &models.ValidationError{Reason: "emoji required"}
	}

	ctx := context.Background()
	msg, err := r.getMessage(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if !r.g.rooms.IsSubscribed(msg.ChatID, c.sessionID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}

	if err := r.g.store.SetReaction(ctx, p.MessageID, c.userID, p.Emoji, time.Now()); err != nil {
		return &models.StoreError{Op: "set reaction", Err: err}
	}
	return r.broadcastReactions(ctx, msg)
}

func (r *Router) handleRemoveReaction(c *Client, raw []byte) error {
	var p models.RemoveReactionPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == 0 {
		return &models.ValidationError{Reason: "messageId required"}
	}

	ctx := context.Background()
	msg, err := r.getMessage(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if !r.g.rooms.IsSubscribed(msg.ChatID, c.sessionID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}

	if err := r.g.store.RemoveReaction(ctx, p.MessageID, c.userID); err != nil {
		return &models.StoreError{Op: "remove reaction", Err: err}
	}
	return r.broadcastReactions(ctx, msg)
}

// broadcastReactions sends the full updated reaction list, not a delta, so
// every observer converges on the same state.
func (r *Router) broadcastReactions(ctx context.Context, msg *models.Message) error {
	reactions, err := r.g.store.ListReactions(ctx, msg.ID)
	if err != nil {
		return &models.StoreError{Op: "list reactions", Err: err}
	}
	r.g.rooms.Broadcast(msg.ChatID, encode(models.ReactionsEvent{
		Event:     models.EventReactionAdded,
		MessageID: msg.ID,
		ChatID:    msg.ChatID,
		Reactions: reactions,
	}))
	return nil
}

func (r *Router) handleMarkAsRead(c *Client, raw []byte) error {
	var p models.MarkAsReadPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		return &models.ValidationError{Reason: "chatId required"}
	}
	if !r.g.rooms.IsSubscribed(p.ChatID, c.sessionID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}

	ctx := context.Background()
	ids := p.MessageIDs
	if len(ids) == 0 {
		var err error
		ids, err = r.g.store.ListUnreadMessageIDs(ctx, p.ChatID, c.userID)
		if err != nil {
			return &models.StoreError{Op: "list unread", Err: err}
		}
	}

	affected, err := r.g.store.MarkRead(ctx, p.ChatID, c.userID, ids)
	if err != nil {
		return &models.StoreError{Op: "mark read", Err: err}
	}
	if len(affected) == 0 {
		return nil
	}

	r.g.rooms.BroadcastExcludingUser(p.ChatID, encode(models.MessagesReadEvent{
		Event:      models.EventMessagesRead,
		UserID:     c.userID,
		ChatID:     p.ChatID,
		MessageIDs: affected,
	}), c.userID)
	return nil
}

func (r *Router) handleTyping(c *Client, raw []byte, start bool) error {
	var p models.TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		return &models.ValidationError{Reason: "chatId required"}
	}
	if !r.g.rooms.IsSubscribed(p.ChatID, c.sessionID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}

	if start {
		r.g.typing.Start(p.ChatID, c.userID)
	} else {
		r.g.typing.Stop(p.ChatID, c.userID)
	}
	return nil
}

func (r *Router) getChat(ctx context.Context, chatID int) (*models.Chat, error) {
	chat, err := r.g.store.GetChatByID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "chat"}
	}
	if err != nil {
		return nil, &models.StoreError{Op: "get chat", Err: err}
	}
	return chat, nil
}

func (r *Router) getMessage(ctx context.Context, messageID int) (*models.Message, error) {
	msg, err := r.g.store.GetMessageByID(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "message"}
	}
	if err != nil {
		return nil, &models.StoreError{Op: "get message", Err: err}
	}
	return msg, nil
}
