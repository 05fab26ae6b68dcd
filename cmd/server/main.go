package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/adapters"
	router "github.com/dkeye/Conclave/internal/adapters/http"
	"github.com/dkeye/Conclave/internal/breakout"
	"github.com/dkeye/Conclave/internal/chat"
	"github.com/dkeye/Conclave/internal/config"
	"github.com/dkeye/Conclave/internal/dispatch"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/equipment"
	"github.com/dkeye/Conclave/internal/permissions"
	"github.com/dkeye/Conclave/internal/pubsub"
	"github.com/dkeye/Conclave/internal/repository"
	"github.com/dkeye/Conclave/internal/rooms"
	"github.com/dkeye/Conclave/internal/scenes"
	"github.com/dkeye/Conclave/internal/syncobj"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
	}
	pingCancel()

	repo := repository.NewClient(rdb)

	registry := permissions.MustRegistry(
		rooms.Permissions(),
		breakout.Permissions(),
		scenes.Permissions(),
		chat.Permissions(),
		equipment.Permissions(),
		permissions.Permissions(),
	)
	resolver := permissions.NewResolver(registry, repo, repo)

	bus := pubsub.NewBrokerWithBuffer[dispatch.Notification](cfg.NotifyBuffer)
	defer bus.Close()
	dispatcher := dispatch.NewDispatcher(resolver, bus)

	defaults := domain.ConferenceConfig{
		Permissions:      cfg.Conference.Permissions,
		ShowTyping:       cfg.Conference.ShowTyping,
		DefaultRoomScene: domain.AutomaticScene(),
		RoomScene: domain.SceneState{
			IsControlled: cfg.Conference.RoomSceneControlled,
			Scene:        domain.Scene{Type: domain.SceneAutomatic},
		},
	}

	roomService := rooms.NewService(repo, repo, defaults)
	breakoutService := breakout.NewService(repo, roomService)
	sceneService := scenes.NewService(repo, repo, repo)
	chatService := chat.NewService(repo, repo, repo)
	equipmentService := equipment.NewService(repo)

	rooms.RegisterHandlers(dispatcher, roomService)
	breakout.RegisterHandlers(dispatcher, breakoutService, repo)
	scenes.RegisterHandlers(dispatcher, sceneService)
	chat.RegisterHandlers(dispatcher, chatService)
	equipment.RegisterHandlers(dispatcher, equipmentService)
	permissions.RegisterHandlers(dispatcher, registry, repo)

	hub := adapters.NewSyncHub()
	engine := syncobj.NewEngine(hub, repo, syncobj.EngineConfig{
		MembershipKinds: []string{
			rooms.KindParticipantJoined,
			rooms.KindParticipantLeft,
			rooms.KindParticipantRoomChanged,
			permissions.KindPermissionsUpdated,
		},
		EndedKind: rooms.KindConferenceEnded,
	})
	engine.Register(rooms.NewSyncProvider(repo), rooms.KindRoomsCreated, rooms.KindRoomsRemoved)
	engine.Register(breakout.NewSyncProvider(breakoutService), breakout.KindBreakoutChanged)
	engine.Register(scenes.NewSyncProvider(sceneService, repo),
		scenes.KindSceneChanged, rooms.KindRoomsCreated, rooms.KindRoomsRemoved)
	engine.Register(chat.NewSyncProvider(chatService, repo), chat.KindTypingChanged)
	engine.Register(equipment.NewSyncProvider(equipmentService), equipment.KindEquipmentUpdated)

	go engine.Run(ctx, bus)
	go sceneService.Run(ctx, bus.Subscribe(ctx))
	go chatService.Run(ctx, bus.Subscribe(ctx))
	go hub.RunNotifications(ctx, bus)

	syncCtrl := adapters.NewSyncController(hub, engine, cfg.PingPeriod)
	r := router.SetupRouter(ctx, cfg, dispatcher, router.DefaultCodec(), syncCtrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Conclave server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
	log.Info().Msg("Server exited gracefully")
}
