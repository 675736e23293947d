package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the chi router backing the read server, per spec §4.7's
// endpoint table, with CORS wide open the way the Rust original served its
// dashboard cross-origin.
func NewRouter(state *State) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(zapRequestLogger(state.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	h := &handlers{state: state}

	r.Get("/health", h.health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/config", h.config)
	r.Get("/manifests", h.listManifests)
	r.Get("/manifests/{name}", h.manifest)
	r.Get("/manifests/{name}/resources", h.manifestResources)
	r.Get("/services/{name}", h.serviceHTML)
	r.Get("/teams", h.listTeams)
	r.Get("/teams/{name}", h.team)

	return r
}

// zapRequestLogger adapts the teacher's structured logger to chi's
// middleware chain, logging each request's method, path, status and
// latency at Info level.
func zapRequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			log.Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
