package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vidspark/internal/http/handlers"
	"vidspark/internal/http/httpapi"
	"vidspark/internal/infra"
	"vidspark/internal/orchestrator"
	"vidspark/internal/providers/introspect"
	"vidspark/internal/providers/local"
	"vidspark/internal/providers/queue"
	"vidspark/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare artifact storage")
	}

	queueClient, err := queue.NewClient(queue.Options{
		APIToken: cfg.QueueAPIToken,
		BaseURL:  cfg.QueueAPIBaseURL,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build queue client")
	}
	queueBackend := queue.NewDispatcher(queueClient, cfg.QueueModelVersion)

	spaceClient := introspect.NewSpaceClient(introspect.SpaceOptions{Logger: &logger})
	syncBackend := introspect.NewController(spaceClient, cfg.FallbackSpaces, &logger)

	localBackend := local.NewRenderer(store, "/static", &logger)

	orch := orchestrator.New(queueBackend, syncBackend, localBackend, orchestrator.NewStore(), &logger)

	app := handlers.NewApp(orch, logger, int64(cfg.MaxUploadMB)<<20)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       store.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
