package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-relay/internal/auth"
	"chat-relay/internal/call"
	"chat-relay/internal/config"
	"chat-relay/internal/models"
	"chat-relay/internal/presence"
	"chat-relay/internal/rooms"
	"chat-relay/internal/store"
	ws "chat-relay/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestHandlers(t *testing.T) *WebSocketHandlers {
	t.Helper()
	st := store.NewMemory()
	st.AddUser(&models.User{ID: 1, Username: "alice"})
	st.AddChat(&models.Chat{ID: 10, Type: models.ChatTypeDirect, ParticipantIDs: []int{1, 2}})

	cfg := config.RelayConfig{
		TypingIdleTimeout: time.Second,
		SendBufferSize:    32,
		WriteWait:         time.Second,
		PongWait:          time.Second,
		PingInterval:      time.Second,
	}
	gateway := ws.NewGateway(
		cfg,
		st,
		presence.NewTable(),
		presence.NewMemoryLastSeen(),
		rooms.NewIndex(),
		call.NewRelay(),
		prometheus.NewRegistry(),
	)
	t.Cleanup(gateway.Shutdown)

	return NewWebSocketHandlers(auth.NewService([]byte("test-secret"), st), gateway)
}

func TestHandleWebSocketMissingToken(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleWebSocketInvalidToken(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleResync(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleResync(rec, httptest.NewRequest(http.MethodPost, "/internal/resync?chatId=10", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHandleResyncRejectsGet(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleResync(rec, httptest.NewRequest(http.MethodGet, "/internal/resync?chatId=10", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleResyncMissingChatID(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleResync(rec, httptest.NewRequest(http.MethodPost, "/internal/resync", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleResyncUnknownChat(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleResync(rec, httptest.NewRequest(http.MethodPost, "/internal/resync?chatId=999", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
}
