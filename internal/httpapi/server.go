// Package httpapi serves the live feed over HTTP: WebSocket, Server-Sent Events
// and plain JSON snapshots.
package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/aggregator"
	"github.com/hay-kot/shoppulse/internal/core/feed"
)

const defaultWriteWait = 10 * time.Second

// Feed is the part of the aggregator the endpoints use.
type Feed interface {
	Connect(fn func(feed.Snapshot)) *aggregator.Subscription
	Subscribers() int
	Running() bool
	Latest() (feed.Snapshot, bool)
}

// Options configures a Server.
type Options struct {
	// AllowedOrigins lists the origins allowed by CORS and the WebSocket upgrade.
	// "*" allows any origin.
	AllowedOrigins []string
	// WriteTimeout bounds each write to a streaming client.
	WriteTimeout time.Duration
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// OnDrop is called with the transport name when a slow client misses a snapshot.
	OnDrop func(transport string)
}

// Server holds the dependencies of the HTTP endpoints.
type Server struct {
	feed      Feed
	opts      Options
	log       zerolog.Logger
	upgrader  websocket.Upgrader
	writeWait time.Duration
}

// New creates a Server for f.
func New(f Feed, opts Options, log zerolog.Logger) *Server {
	s := &Server{
		feed:      f,
		opts:      opts,
		log:       log,
		writeWait: opts.WriteTimeout,
	}
	if s.writeWait <= 0 {
		s.writeWait = defaultWriteWait
	}
	if s.opts.OnDrop == nil {
		s.opts.OnDrop = func(string) {}
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the router with middleware and all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
	}))

	RegisterRoutes(r, s)
	return r
}

// RegisterRoutes mounts the endpoints on r.
func RegisterRoutes(r chi.Router, s *Server) {
	r.Get("/healthz", s.healthHandler)
	r.Get("/snapshot", s.snapshotHandler)
	r.Get("/ws", s.wsHandler)
	r.Get("/stream", s.streamHandler)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", metricsHandler(s.opts.Gatherer))
	}
}

// checkOrigin allows requests without an Origin header and origins on the allow list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
