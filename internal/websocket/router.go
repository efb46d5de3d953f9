package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"
)

// Router dispatches inbound frames to their handlers. Every failure is
// caller-scoped: it goes back on the originating connection only, keyed by
// the client's correlation id when one was supplied.
type Router struct {
	g *Gateway

	// chatLocks serialize persist-then-broadcast per chat so fan-out never
	// reorders two sequentially stored messages.
	mu        sync.Mutex
	chatLocks map[int]*sync.Mutex
}

func newRouter(g *Gateway) *Router {
	return &Router{
		g:         g,
		chatLocks: make(map[int]*sync.Mutex),
	}
}

func (r *Router) chatLock(chatID int) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.chatLocks[chatID]
	if l == nil {
		l = &sync.Mutex{}
		r.chatLocks[chatID] = l
	}
	return l
}

func (r *Router) Dispatch(c *Client, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("handler panic (user %d): %v", c.userID, rec)
		}
	}()

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.sendError(c, "", &models.ValidationError{Reason: "malformed frame"})
		return
	}
	r.g.metrics.eventsTotal.WithLabelValues(string(env.Event)).Inc()

	var (
		err    error
		tempID string
	)
	switch env.Event {
	case models.EventJoinChat:
		err = r.handleJoinChat(c, raw)
	case models.EventLeaveChat:
		err = r.handleLeaveChat(c, raw)
	case models.EventSendMessage:
		tempID, err = r.handleSendMessage(c, raw)
	case models.EventEditMessage:
		err = r.handleEditMessage(c, raw)
	case models.EventDeleteMessage:
		err = r.handleDeleteMessage(c, raw)
	case models.EventAddReaction:
		err = r.handleAddReaction(c, raw)
	case models.EventRemoveReaction:
		err = r.handleRemoveReaction(c, raw)
	case models.EventTypingStart:
		err = r.handleTyping(c, raw, true)
	case models.EventTypingStop:
		err = r.handleTyping(c, raw, false)
	case models.EventMarkAsRead:
		err = r.handleMarkAsRead(c, raw)
	case models.EventCallInitiate:
		err = r.handleCallInitiate(c, raw)
	case models.EventWebRTCOffer, models.EventWebRTCAnswer, models.EventWebRTCICECandidate:
		err = r.handleSignal(c, raw, env.Event)
	case models.EventCallResponse:
		err = r.handleCallResponse(c, raw)
	case models.EventCallEnd:
		err = r.handleCallEnd(c, raw)
	default:
		err = &models.ValidationError{Reason: "unknown event"}
	}

	if err != nil {
		r.g.metrics.eventErrors.WithLabelValues(models.ErrorCode(err)).Inc()
		r.sendError(c, tempID, err)
	}
}

func (r *Router) sendError(c *Client, tempID string, err error) {
	var storeErr *models.StoreError
	if errors.As(err, &storeErr) {
		logger.Error("store failure for user %d: %v", c.userID, err)
	} else {
		logger.Debug("rejected event from user %d: %v", c.userID, err)
	}

	if tempID != "" {
		c.Enqueue(encode(models.MessageErrorEvent{
			Event:  models.EventMessageError,
			TempID: tempID,
			Code:   models.ErrorCode(err),
			Error:  models.ClientMessage(err),
		}))
		return
	}
	c.Enqueue(encode(models.ErrorEvent{
		Event:   models.EventError,
		Code:    models.ErrorCode(err),
		Message: models.ClientMessage(err),
	}))
}
