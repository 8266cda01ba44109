package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/meeting-relay/config"
	"github.com/mossy-p/meeting-relay/internal/handlers"
	"github.com/mossy-p/meeting-relay/internal/logging"
	"github.com/mossy-p/meeting-relay/internal/redis"
	"github.com/mossy-p/meeting-relay/internal/registry"
	"github.com/mossy-p/meeting-relay/internal/relay"
)

func main() {
	cfg := config.Load()
	l := logging.New(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := []relay.Option{relay.WithSendBuffer(cfg.SendBuffer)}

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := redis.Connect(ctx, cfg.Redis)
		cancel()
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		l.Info().Str("host", cfg.Redis.Host).Msg("Redis presence mirror enabled")
		opts = append(opts, relay.WithPresence(redis.NewPresence(rdb, cfg.Redis.PresenceTTL)))
	}

	reg := registry.New(cfg.ReapEmptyRooms)
	hub := relay.NewHub(reg, l.With().Str("component", "relay").Logger(), opts...)

	router := handlers.NewRouter(hub, cfg.AllowedOrigins, l)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		l.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("Starting signaling relay")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Hijacked WebSocket connections are not tracked by srv.
	hub.Shutdown()
	l.Info().Msg("Server exited")
}
