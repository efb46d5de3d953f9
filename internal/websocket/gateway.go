package websocket

import (
	"context"
	"encoding/json"
	"time"

	"chat-relay/internal/call"
	"chat-relay/internal/config"
	"chat-relay/internal/models"
	"chat-relay/internal/presence"
	"chat-relay/internal/rooms"
	"chat-relay/internal/store"
	"chat-relay/internal/typing"
	"chat-relay/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Gateway owns the relay-process state: the presence table, the room index,
// the typing tracker and the call-session table. All of it is injected and
// lifecycle-scoped; Shutdown releases every connection.
type Gateway struct {
	cfg      config.RelayConfig
	store    store.Store
	presence *presence.Table
	lastSeen presence.LastSeenStore
	rooms    *rooms.Index
	typing   *typing.Tracker
	calls    *call.Relay
	router   *Router
	metrics  *relayMetrics
}

func NewGateway(
	cfg config.RelayConfig,
	st store.Store,
	table *presence.Table,
	lastSeen presence.LastSeenStore,
	index *rooms.Index,
	relay *call.Relay,
	reg prometheus.Registerer,
) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		store:    st,
		presence: table,
		lastSeen: lastSeen,
		rooms:    index,
		calls:    relay,
		metrics:  newRelayMetrics(reg),
	}
	g.typing = typing.NewTracker(cfg.TypingIdleTimeout, g.notifyTyping)
	g.router = newRouter(g)
	index.SetDropHandler(func(int, rooms.Subscriber) {
		g.metrics.fanoutDropped.Inc()
	})
	return g
}

func (g *Gateway) Router() *Router { return g.router }

// HandleConnect registers an authenticated connection: presence entry, room
// subscriptions for every chat the identity belongs to, an online snapshot
// for the new connection, and an online-status broadcast to contacts if this
// is the identity's first connection.
func (g *Gateway) HandleConnect(c *Client) {
	ctx := context.Background()

	wasFirst := g.presence.Register(c.userID, c)
	g.metrics.connectionsActive.Inc()

	chatIDs, err := g.store.ListUserChatIDs(ctx, c.userID)
	if err != nil {
		logger.Error("loading chats for user %d: %v", c.userID, err)
	}
	for _, chatID := range chatIDs {
		g.rooms.Subscribe(chatID, c)
	}

	c.Enqueue(encode(models.OnlineUsersEvent{
		Event:   models.EventOnlineUsers,
		UserIDs: g.presence.OnlineUserIDs(),
	}))

	if wasFirst {
		g.metrics.usersOnline.Inc()
		if err := g.lastSeen.SetOnline(ctx, c.userID, true); err != nil {
			logger.Error("marking user %d online: %v", c.userID, err)
		}
		g.broadcastStatus(ctx, c.userID, true, nil)
	}

	logger.Info("user %d connected (session %s)", c.userID, c.sessionID)
}

// HandleDisconnect tears a connection down. If it was the identity's last
// connection the identity goes offline: last-seen is recorded, contacts are
// notified, typing entries are evicted and call peers get a participant-left
// notification.
func (g *Gateway) HandleDisconnect(c *Client) {
	ctx := context.Background()

	g.rooms.DropConnection(c.sessionID)
	wasLast := g.presence.Deregister(c.userID, c.sessionID)
	g.metrics.connectionsActive.Dec()

	if wasLast {
		g.metrics.usersOnline.Dec()
		now := time.Now()

		if err := g.lastSeen.Touch(ctx, c.userID, now); err != nil {
			logger.Error("recording last seen for user %d: %v", c.userID, err)
		}
		if err := g.lastSeen.SetOnline(ctx, c.userID, false); err != nil {
			logger.Error("marking user %d offline: %v", c.userID, err)
		}
		if err := g.store.UpdateLastSeen(ctx, c.userID, now); err != nil {
			logger.Error("persisting last seen for user %d: %v", c.userID, err)
		}

		g.typing.StopAll(c.userID)

		for _, dep := range g.calls.DropIdentity(c.userID) {
			payload := encode(models.CallEndedEvent{
				Event:  models.EventCallEnded,
				CallID: dep.Session.ID,
				ChatID: dep.Session.ChatID,
				UserID: c.userID,
				Reason: "disconnected",
			})
			for _, pid := range dep.Remaining {
				g.presence.SendToUser(pid, payload)
			}
		}
		g.metrics.callsActive.Set(float64(g.calls.ActiveCount()))

		g.broadcastStatus(ctx, c.userID, false, &now)
	}

	logger.Info("user %d disconnected (session %s)", c.userID, c.sessionID)
}

// ResyncChat re-reads the chat's participant list and reconciles the room,
// adding live connections of current participants and dropping the rest.
// Invoked after membership-changing operations.
func (g *Gateway) ResyncChat(ctx context.Context, chatID int) error {
	chat, err := g.store.GetChatByID(ctx, chatID)
	if err != nil {
		if err == store.ErrNotFound {
			return &models.NotFoundError{Resource: "chat"}
		}
		return &models.StoreError{Op: "get chat", Err: err}
	}

	g.rooms.Resync(chatID, chat.ParticipantIDs, func(userID int) []rooms.Subscriber {
		conns := g.presence.ConnectionsOf(userID)
		subs := make([]rooms.Subscriber, 0, len(conns))
		for _, conn := range conns {
			subs = append(subs, conn)
		}
		return subs
	})
	return nil
}

// Shutdown releases all relay state and closes every live connection.
func (g *Gateway) Shutdown() {
	g.typing.Shutdown()
	g.calls.Shutdown()
	g.rooms.Shutdown()
	g.presence.Shutdown()
	logger.Info("gateway shut down")
}

func (g *Gateway) notifyTyping(chatID, userID int, isTyping bool) {
	event := models.EventTypingStop
	if isTyping {
		event = models.EventTypingStart
	}
	payload := encode(models.TypingEvent{
		Event:  event,
		ChatID: chatID,
		UserID: userID,
	})
	g.rooms.BroadcastExcludingUser(chatID, payload, userID)
}

func (g *Gateway) broadcastStatus(ctx context.Context, userID int, online bool, lastSeen *time.Time) {
	contactIDs, err := g.store.GetContactIDs(ctx, userID)
	if err != nil {
		logger.Error("loading contacts for user %d: %v", userID, err)
		return
	}

	payload := encode(models.UserStatusEvent{
		Event:    models.EventUserStatusChange,
		UserID:   userID,
		IsOnline: online,
		LastSeen: lastSeen,
	})
	for _, id := range contactIDs {
		g.presence.SendToUser(id, payload)
	}
}

func encode(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("marshaling event: %v", err)
		return nil
	}
	return data
}
