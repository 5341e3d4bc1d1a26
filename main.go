package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prappser/prappser_composer/internal"
	"github.com/prappser/prappser_composer/internal/composer"
	"github.com/prappser/prappser_composer/internal/health"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/middleware"
	"github.com/prappser/prappser_composer/internal/preview"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/prappser/prappser_composer/internal/submission"
	"github.com/prappser/prappser_composer/internal/upload"
	"github.com/prappser/prappser_composer/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const version = "1.0.0"

func main() {
	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}
	setupLogging(config.Log)

	ctx := context.Background()

	posts := remote.NewClient(config.Services.Posts, nil)
	mediaService := remote.NewClient(config.Services.Media, nil)

	var prober media.DurationProber = media.NewFFProbe(config.Probe.FFProbePath)
	if config.Probe.Native {
		prober = media.NewChainProber(prober)
	}
	validator := media.NewValidator(config.Limits, prober)
	previews := preview.NewRegistry(config.Server.ExternalURL)

	backend, err := upload.NewBackend(ctx, &config.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage backend")
		return
	}
	var mediaFiles fasthttp.RequestHandler
	if local, ok := backend.(*upload.LocalStorage); ok {
		mediaFiles = local.Handler()
	}

	observer, err := upload.NewPrometheusObserver("composer_upload", prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("Error registering upload metrics")
		return
	}
	uploader := upload.NewStorageUploader(backend, "composer", config.Storage.MaxFileSize, observer)
	orchestrator := upload.NewOrchestrator(uploader, observer)

	hub := websocket.NewHub()
	go hub.Run()

	flow := submission.NewFlow(posts, mediaService, orchestrator, submission.Options{
		OnState: func(draftID string, state submission.State) {
			hub.PublishState(draftID, state.String())
		},
	})

	sessions, err := composer.NewSessions(posts, validator, previews, hub, config.Drafts.SpoolDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing draft sessions")
		return
	}
	cleanup := composer.NewCleanupScheduler(sessions, config.Drafts.IdleTTL, config.Drafts.SweepInterval)
	cleanup.Start()

	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)
	wsHandler := websocket.NewHandler(hub, sessions, corsMiddleware)

	healthEndpoints := health.NewEndpoints(version, map[string]health.Gauge{
		"drafts":   sessions.Len,
		"previews": previews.Active,
		"clients": func() int {
			clients, _ := hub.GetStats()
			return clients
		},
	})

	requestHandler := internal.NewRequestHandler(config, internal.Handlers{
		Drafts:     composer.NewEndpoints(sessions, flow),
		Health:     healthEndpoints,
		Previews:   previews,
		WebSocket:  wsHandler,
		MediaFiles: mediaFiles,
		Gatherer:   prometheus.DefaultGatherer,
	})

	server := &fasthttp.Server{
		Handler:            requestHandler,
		Name:               "prappser-composer",
		MaxRequestBodySize: config.Server.MaxRequestBodySize,
		ReadTimeout:        5 * time.Minute,
	}

	go func() {
		addr := fmt.Sprintf(":%d", config.Server.Port)
		log.Info().Str("addr", addr).Str("storage", string(config.Storage.Type)).Msg("Composer server listening")
		if err := server.ListenAndServe(addr); err != nil {
			log.Fatal().Err(err).Msg("Error starting server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	cleanup.Stop()
	hub.Stop()
	sessions.DiscardAll()
}

func setupLogging(config internal.LogConfig) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
