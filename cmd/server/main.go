package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/circlechat/server/internal/adapters/http"
	ws "github.com/circlechat/server/internal/adapters/signal"
	"github.com/circlechat/server/internal/auth"
	"github.com/circlechat/server/internal/config"
	"github.com/circlechat/server/internal/core"
	"github.com/circlechat/server/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Info().Msg(".env loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	resolver := auth.NewResolver(cfg.JWTSecret)
	reg := core.NewRegistry()
	rt := core.NewRouter(reg)
	signals := ws.NewController(reg, rt, resolver, db, ws.Limits{
		ReadLimit:    cfg.ReadLimit,
		WriteTimeout: cfg.WriteTimeout,
	})

	r := router.SetupRouter(ctx, router.Deps{
		Config:   cfg,
		API:      router.NewAPI(db, cfg.HistoryLimit),
		Signals:  signals,
		Auth:     resolver,
		Registry: reg,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("CircleChat server started")
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
	log.Info().Msg("Server exited gracefully")
}
