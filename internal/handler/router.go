package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lifeline-dev/lifeline/internal/handler/api"
	"github.com/lifeline-dev/lifeline/internal/handler/ws"
	"github.com/lifeline-dev/lifeline/internal/hub"
	"github.com/lifeline-dev/lifeline/internal/service/session"
	"github.com/lifeline-dev/lifeline/pkg/utils"
)

// NewRouter wires HTTP routes to the realtime hub and the coordinator.
func NewRouter(h *hub.Hub, coordinator *session.Coordinator, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": h.Count(),
		})
	})

	ws.New(h, coordinator, log).RegisterRoutes(r)

	r.Route("/api", func(apiRouter chi.Router) {
		api.New(coordinator).RegisterRoutes(apiRouter)
	})

	return r
}

// requestLogger logs each request through the service's zerolog logger
// instead of chi's stdlib default.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Msg("request")
		})
	}
}
