package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chatbridge/internal/handlers"
	"chatbridge/internal/middleware"
	"chatbridge/internal/websocket"
)

// New wires the HTTP surface. statsHandler is nil when no audit database is
// configured; chatLimiter guards the endpoints that spend completion quota.
func New(
	chatHandler *handlers.ChatHandler,
	pageHandler *handlers.PageHandler,
	statsHandler *handlers.StatsHandler,
	wsHub *websocket.Hub,
	chatLimiter func(http.Handler) http.Handler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/", pageHandler.Index)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/models", chatHandler.Models)
		if statsHandler != nil {
			r.Get("/stats", statsHandler.Get)
		}

		r.Group(func(r chi.Router) {
			if chatLimiter != nil {
				r.Use(chatLimiter)
			}
			r.Post("/chat", chatHandler.Send)

			// ──── WebSocket relay ────
			r.Get("/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
