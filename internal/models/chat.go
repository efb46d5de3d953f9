package models

import "time"

type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

type Chat struct {
	ID                   int       `json:"id"`
	Type                 ChatType  `json:"type"`
	Name                 string    `json:"name,omitempty"`
	ParticipantIDs       []int     `json:"participant_ids"`
	AdminIDs             []int     `json:"admin_ids,omitempty"`
	OnlyAdminsCanMessage bool      `json:"only_admins_can_message,omitempty"`
	LastActivity         time.Time `json:"last_activity"`
	CreatedAt            time.Time `json:"created_at"`
}

func (c *Chat) IsGroup() bool {
	return c.Type == ChatTypeGroup
}

func (c *Chat) IsParticipant(userID int) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Chat) IsAdmin(userID int) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanMessage reports whether userID may post to this chat under the
// only-admins policy. Non-participants can never post.
func (c *Chat) CanMessage(userID int) bool {
	if !c.IsParticipant(userID) {
		return false
	}
	if c.IsGroup() && c.OnlyAdminsCanMessage {
		return c.IsAdmin(userID)
	}
	return true
}

// OtherParticipant returns the peer of userID in a direct chat.
func (c *Chat) OtherParticipant(userID int) (int, bool) {
	if c.IsGroup() {
		return 0, false
	}
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id, true
		}
	}
	return 0, false
}
