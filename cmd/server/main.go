package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/auth"
	"chat-relay/internal/call"
	"chat-relay/internal/config"
	"chat-relay/internal/handlers"
	"chat-relay/internal/presence"
	"chat-relay/internal/rooms"
	"chat-relay/internal/store"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Configure(cfg.Log.Level)
	defer logger.Sync()

	// Conversation store: postgres when configured, in-memory otherwise
	var st store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database: %v", err)
		}
		st = pg
	} else {
		logger.Info("DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	}
	defer st.Close()

	// Last-seen store: redis when configured, in-memory otherwise
	var lastSeen presence.LastSeenStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to redis: %v", err)
		}
		lastSeen = presence.NewRedisLastSeen(rdb)
		defer rdb.Close()
	} else {
		logger.Info("REDIS_ADDR not set, using in-memory last-seen store")
		lastSeen = presence.NewMemoryLastSeen()
	}

	// Relay state
	table := presence.NewTable()
	index := rooms.NewIndex()
	relay := call.NewRelay()

	gateway := ws.NewGateway(cfg.Relay, st, table, lastSeen, index, relay, prometheus.DefaultRegisterer)

	// Services and handlers
	authService := auth.NewService(cfg.JWT.Secret, st)
	wsHandlers := handlers.NewWebSocketHandlers(authService, gateway)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
	mux.HandleFunc("/internal/resync", wsHandlers.HandleResync)
	mux.HandleFunc("/healthz", handlers.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Relay started on %s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Relay shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}
	gateway.Shutdown()
}
