package main

import (
	"context"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/cache"
	"github.com/campusmatch/backend/internal/config"
	"github.com/campusmatch/backend/internal/db"
	"github.com/campusmatch/backend/internal/logger"
	"github.com/campusmatch/backend/internal/realtime"
	"github.com/campusmatch/backend/internal/repository"
	"github.com/campusmatch/backend/internal/server"
	"github.com/campusmatch/backend/internal/service/auth"
	"github.com/campusmatch/backend/internal/service/chat"
	"github.com/campusmatch/backend/internal/service/discover"
	"github.com/campusmatch/backend/internal/token"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Inject logger into app context
	appCtx := app.New(database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	tokens := token.NewService(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	// Realtime plumbing: the hub tracks live connections, the router fans
	// persisted messages out over it, and the chat service hands every
	// stored message to the router.
	hub := realtime.NewHub()
	router := realtime.NewRouter(hub, log)
	chatSvc := chat.NewChatService(appCtx, router)
	gateway := realtime.NewGateway(hub, tokens, repository.NewMatchRepository(database), chatSvc, log)

	srv := server.New(cfg, tokens)
	srv.Root(gateway)
	srv.Public(auth.NewRegistrar(appCtx, tokens))
	srv.Protected(
		discover.NewRegistrar(appCtx),
		chat.NewRegistrar(chatSvc),
	)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := srv.Start(); err != nil {
		log.Error("server exited", "err", err)
	}
}
