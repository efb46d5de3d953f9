package models

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// DeletedPlaceholder replaces the content of a message deleted for everyone.
const DeletedPlaceholder = "This message was deleted"

type Message struct {
	ID          int         `json:"id"`
	ChatID      int         `json:"chat_id"`
	SenderID    int         `json:"sender_id"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type"`
	ReplyToID   *int        `json:"reply_to_id,omitempty"`
	FileURL     string      `json:"file_url,omitempty"`
	Edited      bool        `json:"edited,omitempty"`
	EditedAt    *time.Time  `json:"edited_at,omitempty"`
	Deleted     bool        `json:"deleted,omitempty"`
	DeliveredTo []int       `json:"delivered_to,omitempty"`
	ReadBy      []int       `json:"read_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Reaction struct {
	MessageID int       `json:"message_id"`
	UserID    int       `json:"user_id"`
	Emoji     string    `json:"emoji"`
	ReactedAt time.Time `json:"reacted_at"`
}
