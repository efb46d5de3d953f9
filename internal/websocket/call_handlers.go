package websocket

import (
	"context"
	"encoding/json"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"
)

func (r *Router) handleCallInitiate(c *Client, raw []byte) error {
	var p models.CallInitiatePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.CallID == "" || p.ChatID == 0 {
		return &models.ValidationError{Reason: "callId and chatId required"}
	}

	chat, err := r.getChat(context.Background(), p.ChatID)
	if err != nil {
		return err
	}
	if !chat.IsParticipant(c.userID) {
		return &models.AuthorizationError{Reason: "not a member of this chat"}
	}
	if chat.IsGroup() {
		return &models.ValidationError{Reason: "group calls are not supported"}
	}
	peer, ok := chat.OtherParticipant(c.userID)
	if !ok {
		return &models.ValidationError{Reason: "chat has no peer to call"}
	}

	if _, err := r.g.calls.Initiate(p.CallID, p.ChatID, c.userID, p.CallType); err != nil {
		return err
	}
	r.g.metrics.callsActive.Set(float64(r.g.calls.ActiveCount()))

	// Direct notification to the peer only, not a room broadcast. If the
	// peer is offline the session stays ringing; the relay never replays.
	sent := r.g.presence.SendToUser(peer, encode(models.CallIncomingEvent{
		Event:      models.EventCallIncoming,
		CallID:     p.CallID,
		ChatID:     p.ChatID,
		CallType:   p.CallType,
		CallerID:   c.userID,
		CallerName: c.username,
	}))
	if sent == 0 {
		logger.Debug("call %s: peer %d has no live connection", p.CallID, peer)
	}
	return nil
}

// handleSignal forwards an offer/answer/ICE payload verbatim to the target
// identity's live connections. The payload is never inspected or persisted.
func (r *Router) handleSignal(c *Client, raw []byte, event models.EventType) error {
	var p models.SignalPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.CallID == "" || p.TargetUserID == 0 {
		return &models.ValidationError{Reason: "callId and targetUserId required"}
	}

	sess, ok := r.g.calls.Get(p.CallID)
	if !ok {
		return &models.NotFoundError{Resource: "call"}
	}
	// Only session participants may signal. The callee joins the set on
	// accept; until then the initiator alone can push the offer.
	if !sess.Participants[c.userID] {
		return &models.AuthorizationError{Reason: "not a participant of this call"}
	}

	sent := r.g.presence.SendToUser(p.TargetUserID, encode(models.SignalEvent{
		Event:      event,
		CallID:     p.CallID,
		FromUserID: c.userID,
		Payload:    p.Payload,
	}))
	if sent == 0 {
		// Renegotiation after reconnect is the client's responsibility.
		logger.Debug("call %s: %s target %d unreachable", p.CallID, event, p.TargetUserID)
	}
	return nil
}

func (r *Router) handleCallResponse(c *Client, raw []byte) error {
	var p models.CallResponsePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.CallID == "" || p.TargetUserID == 0 {
		return &models.ValidationError{Reason: "callId and targetUserId required"}
	}

	sess, ok := r.g.calls.Get(p.CallID)
	if !ok {
		return &models.NotFoundError{Resource: "call"}
	}
	chat, err := r.getChat(context.Background(), sess.ChatID)
	if err != nil {
		return err
	}
	// Only the callee may answer: the initiator's peer in the 1:1 chat.
	// Anyone else who learned the call id stays outside the session.
	callee, ok := chat.OtherParticipant(sess.InitiatorID)
	if !ok || callee != c.userID {
		return &models.AuthorizationError{Reason: "not the callee of this call"}
	}

	if _, err := r.g.calls.Respond(p.CallID, c.userID, p.Accepted); err != nil {
		return err
	}
	r.g.metrics.callsActive.Set(float64(r.g.calls.ActiveCount()))

	r.g.presence.SendToUser(p.TargetUserID, encode(models.CallResponseEvent{
		Event:      models.EventCallResponse,
		CallID:     p.CallID,
		Accepted:   p.Accepted,
		FromUserID: c.userID,
	}))
	return nil
}

func (r *Router) handleCallEnd(c *Client, raw []byte) error {
	var p models.CallEndPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.CallID == "" {
		return &models.ValidationError{Reason: "callId required"}
	}

	sess, ok := r.g.calls.End(p.CallID)
	if !ok {
		// Already ended; idempotent.
		return nil
	}
	r.g.metrics.callsActive.Set(float64(r.g.calls.ActiveCount()))

	chatID := p.ChatID
	if chatID == 0 {
		chatID = sess.ChatID
	}
	r.g.rooms.Broadcast(chatID, encode(models.CallEndedEvent{
		Event:  models.EventCallEnded,
		CallID: p.CallID,
		ChatID: chatID,
		UserID: c.userID,
	}), c.sessionID)
	return nil
}
