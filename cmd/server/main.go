package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatserver/internal/auth"
	"chatserver/internal/chat"
	"chatserver/internal/config"
	"chatserver/internal/db"
	"chatserver/internal/member"
	"chatserver/internal/middleware"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Platform layer: Postgres + Redis.
	database, err := db.NewDatabase(cfg.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("connected to postgres, schema ready")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")

	tokens := auth.NewTokenProvider(cfg.JWTSecret, cfg.JWTExpiryMinutes)

	// Member feature.
	memberRepo := member.NewRepository(database.Conn)
	memberService := member.NewService(memberRepo, tokens)
	memberHandler := member.NewHandler(memberService)

	// Chat feature: store + directory, then the real-time pieces.
	chatRepo := chat.NewRepository(database.Conn)
	chatService := chat.NewService(chatRepo, memberRepo)
	gate := chat.NewAccessGate(tokens, chatService)

	hub := chat.NewHub()
	bridge := chat.NewBridge(redisClient, hub)
	go hub.Run()
	go bridge.Listen(ctx)

	chatHandler := chat.NewHandler(hub, chatService, gate, bridge)

	authMiddleware := middleware.NewAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes.
	r.Post("/member/create", memberHandler.Create)
	r.Post("/member/doLogin", memberHandler.Login)

	// The websocket endpoint is public at the HTTP layer: authentication
	// happens on the OPEN frame inside the connection.
	r.Get("/ws", chatHandler.ServeWs)

	// Protected CRUD surface.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/member/list", memberHandler.List)

		r.Post("/chat/room/group/create", chatHandler.CreateGroupRoom)
		r.Get("/chat/room/group/list", chatHandler.ListGroupRooms)
		r.Post("/chat/room/group/{roomId}/join", chatHandler.JoinGroupRoom)
		r.Delete("/chat/room/group/{roomId}/leave", chatHandler.LeaveGroupRoom)
		r.Post("/chat/room/private/create", chatHandler.GetOrCreatePrivateRoom)
		r.Get("/chat/history/{roomId}", chatHandler.GetChatHistory)
		r.Post("/chat/room/{roomId}/read", chatHandler.MarkRoomRead)
		r.Get("/chat/my/rooms", chatHandler.MyRooms)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
