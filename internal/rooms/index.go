package rooms

import (
	"sync"

	"chat-relay/pkg/logger"
)

// Subscriber is one live connection inside a room.
type Subscriber interface {
	ID() string
	UserID() int
	Enqueue(payload []byte) bool
}

// Index maps chat ids to the live set of subscribed connections. A
// connection belongs to a room only if its identity was a chat participant
// at subscribe time; Resync reconciles rooms after membership changes.
type Index struct {
	mu     sync.RWMutex
	rooms  map[int]map[string]Subscriber
	byConn map[string]map[int]bool

	// onDrop is invoked when a subscriber's send queue rejects a payload.
	onDrop func(chatID int, sub Subscriber)
}

func NewIndex() *Index {
	return &Index{
		rooms:  make(map[int]map[string]Subscriber),
		byConn: make(map[string]map[int]bool),
	}
}

func (x *Index) SetDropHandler(fn func(chatID int, sub Subscriber)) {
	x.onDrop = fn
}

func (x *Index) Subscribe(chatID int, sub Subscriber) {
	x.mu.Lock()
	defer x.mu.Unlock()

	room := x.rooms[chatID]
	if room == nil {
		room = make(map[string]Subscriber)
		x.rooms[chatID] = room
	}
	room[sub.ID()] = sub

	set := x.byConn[sub.ID()]
	if set == nil {
		set = make(map[int]bool)
		x.byConn[sub.ID()] = set
	}
	set[chatID] = true
}

func (x *Index) Unsubscribe(chatID int, connID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.unsubscribeLocked(chatID, connID)
}

func (x *Index) unsubscribeLocked(chatID int, connID string) {
	if room := x.rooms[chatID]; room != nil {
		delete(room, connID)
		if len(room) == 0 {
			delete(x.rooms, chatID)
		}
	}
	if set := x.byConn[connID]; set != nil {
		delete(set, chatID)
		if len(set) == 0 {
			delete(x.byConn, connID)
		}
	}
}

func (x *Index) IsSubscribed(chatID int, connID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	room := x.rooms[chatID]
	if room == nil {
		return false
	}
	_, ok := room[connID]
	return ok
}

// DropConnection removes the connection from every room it joined and
// returns the chat ids it was subscribed to.
func (x *Index) DropConnection(connID string) []int {
	x.mu.Lock()
	defer x.mu.Unlock()

	set := x.byConn[connID]
	if len(set) == 0 {
		return nil
	}
	chatIDs := make([]int, 0, len(set))
	for chatID := range set {
		chatIDs = append(chatIDs, chatID)
	}
	for _, chatID := range chatIDs {
		x.unsubscribeLocked(chatID, connID)
	}
	return chatIDs
}

// Broadcast enqueues payload on every subscriber of the room except the
// listed connection ids. Each send is independent: a full queue drops the
// payload for that subscriber only.
func (x *Index) Broadcast(chatID int, payload []byte, exclude ...string) {
	for _, sub := range x.snapshot(chatID) {
		if contains(exclude, sub.ID()) {
			continue
		}
		x.deliver(chatID, sub, payload)
	}
}

// BroadcastExcludingUser is Broadcast but skips every connection of userID.
func (x *Index) BroadcastExcludingUser(chatID int, payload []byte, userID int) {
	for _, sub := range x.snapshot(chatID) {
		if sub.UserID() == userID {
			continue
		}
		x.deliver(chatID, sub, payload)
	}
}

func (x *Index) deliver(chatID int, sub Subscriber, payload []byte) {
	if !sub.Enqueue(payload) {
		logger.Debug("room %d: dropped payload for slow subscriber %s", chatID, sub.ID())
		if x.onDrop != nil {
			x.onDrop(chatID, sub)
		}
	}
}

func (x *Index) snapshot(chatID int) []Subscriber {
	x.mu.RLock()
	defer x.mu.RUnlock()
	room := x.rooms[chatID]
	if len(room) == 0 {
		return nil
	}
	out := make([]Subscriber, 0, len(room))
	for _, sub := range room {
		out = append(out, sub)
	}
	return out
}

func (x *Index) Subscribers(chatID int) []Subscriber {
	return x.snapshot(chatID)
}

// Resync reconciles the room against the chat's current participant list:
// connections of removed participants are unsubscribed, and live connections
// of current participants are added. connsOf supplies the online connections
// for one identity.
func (x *Index) Resync(chatID int, participantIDs []int, connsOf func(userID int) []Subscriber) {
	allowed := make(map[int]bool, len(participantIDs))
	for _, id := range participantIDs {
		allowed[id] = true
	}

	x.mu.Lock()
	if room := x.rooms[chatID]; room != nil {
		for connID, sub := range room {
			if !allowed[sub.UserID()] {
				x.unsubscribeLocked(chatID, connID)
			}
		}
	}
	x.mu.Unlock()

	for _, userID := range participantIDs {
		for _, sub := range connsOf(userID) {
			x.Subscribe(chatID, sub)
		}
	}
}

// Shutdown empties the index. Connections themselves are owned by the
// presence table.
func (x *Index) Shutdown() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rooms = make(map[int]map[string]Subscriber)
	x.byConn = make(map[string]map[int]bool)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
