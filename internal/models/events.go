package models

import (
	"encoding/json"
	"time"
)

type EventType string

// Client -> server events.
const (
	EventJoinChat           EventType = "join_chat"
	EventLeaveChat          EventType = "leave_chat"
	EventSendMessage        EventType = "send_message"
	EventEditMessage        EventType = "edit_message"
	EventDeleteMessage      EventType = "delete_message"
	EventAddReaction        EventType = "add_reaction"
	EventRemoveReaction     EventType = "remove_reaction"
	EventTypingStart        EventType = "typing_start"
	EventTypingStop         EventType = "typing_stop"
	EventMarkAsRead         EventType = "mark_as_read"
	EventCallInitiate       EventType = "call_initiate"
	EventWebRTCOffer        EventType = "webrtc_offer"
	EventWebRTCAnswer       EventType = "webrtc_answer"
	EventWebRTCICECandidate EventType = "webrtc_ice_candidate"
	EventCallResponse       EventType = "call_response"
	EventCallEnd            EventType = "call_end"
)

// Server -> client events. typing_start/typing_stop, call_response and the
// webrtc_* events reuse the inbound names when forwarded.
const (
	EventOnlineUsers      EventType = "online_users"
	EventUserStatusChange EventType = "user_status_change"
	EventNewMessage       EventType = "new_message"
	EventMessageEdited    EventType = "message_edited"
	EventMessageDeleted   EventType = "message_deleted"
	EventReactionAdded    EventType = "reaction_added"
	EventMessagesRead     EventType = "messages_read"
	EventCallIncoming     EventType = "call_incoming"
	EventCallEnded        EventType = "call_ended"
	EventMessageSent      EventType = "message_sent"
	EventMessageError     EventType = "message_error"
	EventError            EventType = "error"
)

// Envelope is the first-pass decode of an inbound frame. The payload fields
// live alongside "event" in the same JSON object; handlers re-decode the raw
// frame into the typed payload for the event. The discriminator key is
// "event" rather than "type" because send_message carries a "type" field of
// its own (the message type).
type Envelope struct {
	Event EventType `json:"event"`
}

// ---- inbound payloads ----

type JoinChatPayload struct {
	ChatID int `json:"chatId"`
}

type LeaveChatPayload struct {
	ChatID int `json:"chatId"`
}

type SendMessagePayload struct {
	ChatID  int         `json:"chatId"`
	Content string      `json:"content"`
	Type    MessageType `json:"type,omitempty"`
	ReplyTo *int        `json:"replyTo,omitempty"`
	File    string      `json:"file,omitempty"`
	TempID  string      `json:"tempId"`
}

type EditMessagePayload struct {
	MessageID int    `json:"messageId"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID         int  `json:"messageId"`
	DeleteForEveryone bool `json:"deleteForEveryone"`
}

type AddReactionPayload struct {
	MessageID int    `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type RemoveReactionPayload struct {
	MessageID int `json:"messageId"`
}

type TypingPayload struct {
	ChatID int `json:"chatId"`
}

type MarkAsReadPayload struct {
	ChatID     int   `json:"chatId"`
	MessageIDs []int `json:"messageIds,omitempty"`
}

type CallInitiatePayload struct {
	ChatID   int    `json:"chatId"`
	CallType string `json:"callType"`
	CallID   string `json:"callId"`
}

type SignalPayload struct {
	TargetUserID int             `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload"`
	CallID       string          `json:"callId"`
}

type CallResponsePayload struct {
	CallID       string `json:"callId"`
	Accepted     bool   `json:"accepted"`
	TargetUserID int    `json:"targetUserId"`
}

type CallEndPayload struct {
	CallID string `json:"callId"`
	ChatID int    `json:"chatId"`
}

// ---- outbound events ----

type OnlineUsersEvent struct {
	Event   EventType `json:"event"`
	UserIDs []int     `json:"userIds"`
}

type UserStatusEvent struct {
	Event    EventType  `json:"event"`
	UserID   int        `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type NewMessageEvent struct {
	Event   EventType `json:"event"`
	Message *Message  `json:"message"`
}

type MessageEditedEvent struct {
	Event     EventType `json:"event"`
	MessageID int       `json:"messageId"`
	ChatID    int       `json:"chatId"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"editedAt"`
}

type MessageDeletedEvent struct {
	Event     EventType `json:"event"`
	MessageID int       `json:"messageId"`
	ChatID    int       `json:"chatId"`
}

type ReactionsEvent struct {
	Event     EventType   `json:"event"`
	MessageID int         `json:"messageId"`
	ChatID    int         `json:"chatId"`
	Reactions []*Reaction `json:"reactions"`
}

type TypingEvent struct {
	Event  EventType `json:"event"`
	ChatID int       `json:"chatId"`
	UserID int       `json:"userId"`
}

type MessagesReadEvent struct {
	Event      EventType `json:"event"`
	UserID     int       `json:"userId"`
	ChatID     int       `json:"chatId"`
	MessageIDs []int     `json:"messageIds"`
}

type CallIncomingEvent struct {
	Event      EventType `json:"event"`
	CallID     string    `json:"callId"`
	ChatID     int       `json:"chatId"`
	CallType   string    `json:"callType"`
	CallerID   int       `json:"callerId"`
	CallerName string    `json:"callerName,omitempty"`
}

type SignalEvent struct {
	Event      EventType       `json:"event"`
	CallID     string          `json:"callId"`
	FromUserID int             `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload"`
}

type CallResponseEvent struct {
	Event      EventType `json:"event"`
	CallID     string    `json:"callId"`
	Accepted   bool      `json:"accepted"`
	FromUserID int       `json:"fromUserId"`
}

type CallEndedEvent struct {
	Event  EventType `json:"event"`
	CallID string    `json:"callId"`
	ChatID int       `json:"chatId,omitempty"`
	UserID int       `json:"userId"`
	Reason string    `json:"reason,omitempty"`
}

type MessageSentEvent struct {
	Event   EventType `json:"event"`
	TempID  string    `json:"tempId"`
	Message *Message  `json:"message"`
}

type MessageErrorEvent struct {
	Event  EventType `json:"event"`
	TempID string    `json:"tempId"`
	Code   string    `json:"code"`
	Error  string    `json:"error"`
}

type ErrorEvent struct {
	Event   EventType `json:"event"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}
