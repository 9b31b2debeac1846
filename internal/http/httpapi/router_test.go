package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"server/internal/http/handlers"
	"server/internal/infra"
)

func newTestRouter() http.Handler {
	app := handlers.NewApp(&infra.Config{GeminiAPIKey: "test-key"}, zerolog.Nop(), nil, nil, nil)
	return NewRouter(app, zerolog.Nop(), nil)
}

func TestRouterHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterServesSPA(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Gemini Studio")
}

func TestRouterDispatcherOwnsMethodCheck(t *testing.T) {
	// The generate route is registered for all methods so the dispatcher can
	// answer non-POST requests with its JSON 405 body instead of chi's default.
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gemini", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}

func TestRouterEchoesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	newTestRouter().ServeHTTP(rec, req)

	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
