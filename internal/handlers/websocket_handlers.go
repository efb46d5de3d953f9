package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"chat-relay/internal/auth"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	gateway     *ws.Gateway
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, gateway *ws.Gateway) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		gateway:     gateway,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket authenticates the handshake and upgrades the connection.
// A bad credential is rejected before any event is processed.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		tokenStr = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.UserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client, err := ws.NewClient(h.gateway, conn, user)
	if err != nil {
		logger.Error("Error creating client: %v", err)
		conn.Close()
		return
	}

	h.gateway.HandleConnect(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleResync reconciles a chat's live room against the store's participant
// list. The external store service calls this after membership mutations.
func (h *WebSocketHandlers) HandleResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	chatID, err := strconv.Atoi(r.URL.Query().Get("chatId"))
	if err != nil || chatID == 0 {
		http.Error(w, "chatId required", http.StatusBadRequest)
		return
	}

	if err := h.gateway.ResyncChat(r.Context(), chatID); err != nil {
		logger.Error("resyncing chat %d: %v", chatID, err)
		http.Error(w, "resync failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
