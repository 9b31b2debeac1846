package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/providers/chat"
	"server/internal/providers/genai"
	"server/internal/providers/image"
	"server/internal/providers/video"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ChatModel:  cfg.ChatModel,
		ImageModel: cfg.ImageModel,
		VideoModel: cfg.VideoModel,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	app := handlers.NewApp(
		cfg,
		logger,
		chat.NewGeminiGenerator(client),
		image.NewGeminiGenerator(client),
		video.NewGeminiGenerator(client, video.Options{
			Interval: cfg.VideoPollInterval,
			Timeout:  cfg.VideoPollTimeout,
			Logger:   logger,
		}),
	)

	router := httpapi.NewRouter(app, logger, cfg.AllowedOrigins)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
