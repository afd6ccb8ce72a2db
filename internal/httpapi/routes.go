package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-draft-backend/internal/hub"
	"github.com/DoyleJ11/auction-draft-backend/internal/ws"
)

// SetupRoutes wires the router. apiTimeout bounds the plain HTTP routes;
// the websocket route is long-lived and never times out.
func SetupRoutes(h *hub.Hub, log *zap.Logger, apiTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(log.Named("http")))

	// Public routes
	r.Get("/healthz", Healthz(h))
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/api", func(r chi.Router) {
		if apiTimeout > 0 {
			r.Use(middleware.Timeout(apiTimeout))
		}
		r.Get("/state", State(h))
		r.Get("/export.csv", Export(h))
		r.Get("/export/{team}.csv", Export(h))
	})
	return r
}
