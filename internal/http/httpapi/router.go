package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter builds the chi router with the standard middleware stack. The
// generation endpoint is registered for all methods so the dispatcher can
// answer non-POST requests with its own 405 body.
func NewRouter(app *handlers.App, logger zerolog.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(allowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.HandleFunc("/api/gemini", app.Generate)
	r.Handle("/*", app.Assets())

	return r
}
