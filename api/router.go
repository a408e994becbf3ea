package api

import (
	"io"
	"net/http"
	"time"
	"lookupdesk/api/router/handlers"
	"lookupdesk/logger"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the chi router for the service. API paths live under
// /api; /health and /metrics sit at the root.
func NewRouter(h *handlers.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(handlers.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	compressor := middleware.NewCompressor(5, "application/json", "text/plain")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	r.Use(compressor.Handler)

	if h.Metrics != nil {
		r.Use(h.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	handlers.RegisterHealthRoutes(r)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(60 * time.Second))
		h.RegisterAuthRoutes(api)
		h.RegisterAdminRoutes(api)
		h.RegisterQueryRoutes(api)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logger.Error("Router catch-all: Unhandled route: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
	})

	return r
}
