package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-relay/internal/models"
)

// Memory is a mutex-guarded in-memory Store used by tests and by local runs
// without a DATABASE_URL.
type Memory struct {
	mu         sync.Mutex
	users      map[int]*models.User
	chats      map[int]*models.Chat
	messages   map[int]*models.Message
	hidden     map[int]map[int]bool
	deliveries map[int]map[int]bool
	reads      map[int]map[int]bool
	reactions  map[int]map[int]*models.Reaction
	nextMsgID  int
	clock      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int]*models.User),
		chats:      make(map[int]*models.Chat),
		messages:   make(map[int]*models.Message),
		hidden:     make(map[int]map[int]bool),
		deliveries: make(map[int]map[int]bool),
		reads:      make(map[int]map[int]bool),
		reactions:  make(map[int]map[int]*models.Reaction),
		nextMsgID:  1,
		clock:      time.Now,
	}
}

func (m *Memory) Close() error { return nil }

// AddUser and AddChat seed fixture data.
func (m *Memory) AddUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) AddChat(c *models.Chat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[c.ID] = c
}

// User Repository Implementation

func (m *Memory) GetUserByID(_ context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetContactIDs(_ context.Context, userID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int]bool)
	for _, c := range m.chats {
		if !c.IsParticipant(userID) {
			continue
		}
		for _, id := range c.ParticipantIDs {
			if id != userID {
				seen[id] = true
			}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *Memory) UpdateLastSeen(_ context.Context, userID int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		t := at
		u.LastSeen = &t
	}
	return nil
}

// Chat Repository Implementation

func (m *Memory) GetChatByID(_ context.Context, id int) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.ParticipantIDs = append([]int(nil), c.ParticipantIDs...)
	cp.AdminIDs = append([]int(nil), c.AdminIDs...)
	return &cp, nil
}

func (m *Memory) ListUserChatIDs(_ context.Context, userID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, c := range m.chats {
		if c.IsParticipant(userID) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *Memory) AddParticipant(_ context.Context, chatID, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	if !c.IsParticipant(userID) {
		c.ParticipantIDs = append(c.ParticipantIDs, userID)
	}
	return nil
}

func (m *Memory) RemoveParticipant(_ context.Context, chatID, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	out := c.ParticipantIDs[:0]
	for _, id := range c.ParticipantIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	c.ParticipantIDs = out
	return nil
}

func (m *Memory) TouchChat(_ context.Context, chatID int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.chats[chatID]; ok {
		c.LastActivity = at
	}
	return nil
}

// Message Repository Implementation

func (m *Memory) CreateMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextMsgID
	m.nextMsgID++
	msg.CreatedAt = m.clock()
	cp := *msg
	m.messages[msg.ID] = &cp
	return msg, nil
}

func (m *Memory) GetMessageByID(_ context.Context, id int) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getMessageLocked(id)
}

func (m *Memory) getMessageLocked(id int) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *msg
	cp.DeliveredTo = sortedKeys(m.deliveries[id])
	cp.ReadBy = sortedKeys(m.reads[id])
	return &cp, nil
}

func (m *Memory) EditMessage(_ context.Context, messageID int, content string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok || msg.Deleted {
		return ErrNotFound
	}
	msg.Content = content
	msg.Edited = true
	t := at
	msg.EditedAt = &t
	return nil
}

func (m *Memory) DeleteMessageForEveryone(_ context.Context, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return ErrNotFound
	}
	msg.Deleted = true
	msg.Content = models.DeletedPlaceholder
	return nil
}

func (m *Memory) HideMessageForUser(_ context.Context, messageID, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[messageID]; !ok {
		return ErrNotFound
	}
	if m.hidden[messageID] == nil {
		m.hidden[messageID] = make(map[int]bool)
	}
	m.hidden[messageID][userID] = true
	return nil
}

func (m *Memory) MarkDelivered(_ context.Context, messageID int, userIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[messageID]; !ok {
		return ErrNotFound
	}
	if m.deliveries[messageID] == nil {
		m.deliveries[messageID] = make(map[int]bool)
	}
	for _, id := range userIDs {
		m.deliveries[messageID][id] = true
	}
	return nil
}

func (m *Memory) ListUnreadMessageIDs(_ context.Context, chatID, userID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, msg := range m.messages {
		if msg.ChatID != chatID || msg.SenderID == userID || msg.Deleted {
			continue
		}
		if m.reads[id][userID] {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Reaction Repository Implementation

func (m *Memory) SetReaction(_ context.Context, messageID, userID int, emoji string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[messageID]; !ok {
		return ErrNotFound
	}
	if m.reactions[messageID] == nil {
		m.reactions[messageID] = make(map[int]*models.Reaction)
	}
	m.reactions[messageID][userID] = &models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		ReactedAt: at,
	}
	return nil
}

func (m *Memory) RemoveReaction(_ context.Context, messageID, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reactions[messageID], userID)
	return nil
}

func (m *Memory) ListReactions(_ context.Context, messageID int) ([]*models.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reaction
	for _, r := range m.reactions[messageID] {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReactedAt.Equal(out[j].ReactedAt) {
			return out[i].ReactedAt.Before(out[j].ReactedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Receipt Repository Implementation

func (m *Memory) MarkRead(_ context.Context, chatID, userID int, messageIDs []int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected []int
	for _, id := range messageIDs {
		msg, ok := m.messages[id]
		if !ok || msg.ChatID != chatID || msg.SenderID == userID {
			continue
		}
		if m.reads[id][userID] {
			continue
		}
		if m.reads[id] == nil {
			m.reads[id] = make(map[int]bool)
		}
		m.reads[id][userID] = true
		affected = append(affected, id)
	}
	sort.Ints(affected)
	return affected, nil
}

func sortedKeys(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
