package store

import (
	"context"
	"errors"
	"time"

	"chat-relay/internal/models"
)

// ErrNotFound is returned when a user, chat or message does not exist.
var ErrNotFound = errors.New("not found")

type UserRepository interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	// GetContactIDs returns the ids of every user sharing at least one chat
	// with userID.
	GetContactIDs(ctx context.Context, userID int) ([]int, error)
	UpdateLastSeen(ctx context.Context, userID int, at time.Time) error
}

type ChatRepository interface {
	GetChatByID(ctx context.Context, id int) (*models.Chat, error)
	ListUserChatIDs(ctx context.Context, userID int) ([]int, error)
	AddParticipant(ctx context.Context, chatID, userID int) error
	RemoveParticipant(ctx context.Context, chatID, userID int) error
	// TouchChat bumps the chat's last-activity timestamp. Deliberately a
	// separate write from CreateMessage; a crash between the two leaves the
	// timestamp momentarily stale, which is tolerated.
	TouchChat(ctx context.Context, chatID int, at time.Time) error
}

type MessageRepository interface {
	// CreateMessage persists msg, assigning its id and server timestamp.
	CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetMessageByID(ctx context.Context, id int) (*models.Message, error)
	// EditMessage replaces a live message's content. A message already
	// deleted for everyone is refused with ErrNotFound so a concurrent
	// delete can never lose its tombstone.
	EditMessage(ctx context.Context, messageID int, content string, at time.Time) error
	// DeleteMessageForEveryone sets the deleted flag and replaces content
	// with the tombstone text.
	DeleteMessageForEveryone(ctx context.Context, messageID int) error
	HideMessageForUser(ctx context.Context, messageID, userID int) error
	MarkDelivered(ctx context.Context, messageID int, userIDs []int) error
	ListUnreadMessageIDs(ctx context.Context, chatID, userID int) ([]int, error)
}

type ReactionRepository interface {
	// SetReaction upserts the caller's reaction: one per (message, user),
	// latest emoji wins.
	SetReaction(ctx context.Context, messageID, userID int, emoji string, at time.Time) error
	RemoveReaction(ctx context.Context, messageID, userID int) error
	ListReactions(ctx context.Context, messageID int) ([]*models.Reaction, error)
}

type ReceiptRepository interface {
	// MarkRead records read receipts for the given message ids on behalf of
	// userID and returns the ids that were newly marked. Already-read
	// messages and the caller's own messages are skipped.
	MarkRead(ctx context.Context, chatID, userID int, messageIDs []int) ([]int, error)
}

type Store interface {
	UserRepository
	ChatRepository
	MessageRepository
	ReactionRepository
	ReceiptRepository
	Close() error
}
