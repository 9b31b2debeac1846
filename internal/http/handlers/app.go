package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/infra"
	"server/internal/providers/chat"
	"server/internal/providers/image"
	"server/internal/providers/video"
)

// App carries the handler dependencies: configuration, logger and one
// generator per capability. Handlers hold no cross-request state.
type App struct {
	Config *infra.Config
	Logger zerolog.Logger
	Chat   chat.Generator
	Image  image.Generator
	Video  video.Generator
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, chatGen chat.Generator, imageGen image.Generator, videoGen video.Generator) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Chat:   chatGen,
		Image:  imageGen,
		Video:  videoGen,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, errorResponse{Error: msg})
}
