package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conectaplus/internal/cache"
	"conectaplus/internal/config"
	"conectaplus/internal/logging"
	"conectaplus/internal/repository"
	"conectaplus/internal/service"
	"conectaplus/internal/store"
	"conectaplus/internal/transport/rest"
	"conectaplus/internal/transport/ws"
	"conectaplus/internal/video"
)

func main() {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		pingCancel()
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	pingCancel()
	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	// Video rooms; a missing API key disables provisioning.
	videoProvider := video.NewDaily(cfg.DailyAPIKey, cfg.DailyDomain)
	if videoProvider.Configured() {
		log.Info().Str("domain", cfg.DailyDomain).Msg("video room provider enabled")
	} else {
		log.Warn().Msg("DAILY_API_KEY not set, video rooms disabled")
	}

	// Repositories and caches
	gameRepo := repository.NewGameRepo(db)
	cardRepo := repository.NewCardRepo(db)
	snapshots := cache.NewSnapshotCache(rdb)

	// In-memory room registry and WebSocket hub
	roomStore := store.NewRoomStore()
	hub := ws.NewHub()

	// Coordinators
	roomSvc := service.NewRoomService(roomStore, gameRepo, snapshots, videoProvider, hub, cfg.Game)
	turnSvc := service.NewTurnService(roomStore, hub, cfg.Game)
	gameSvc := service.NewGameService(roomStore, gameRepo, cardRepo, snapshots, videoProvider, hub, turnSvc, cfg.Game)
	votingSvc := service.NewVotingService(roomStore, hub, turnSvc, gameSvc)
	debateSvc := service.NewDebateService(roomStore, hub, turnSvc, gameSvc)

	roomSvc.StartSweeper(ctx)

	dispatcher := ws.NewDispatcher(hub, roomSvc, gameSvc, turnSvc, votingSvc, debateSvc)
	wsHandler := ws.NewHandler(hub, dispatcher)

	router := rest.NewRouter(&rest.Container{
		RoomService: roomSvc,
		WSHandler:   wsHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
