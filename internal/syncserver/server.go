// Package syncserver exposes a store over HTTP and pushes full-collection
// snapshots to websocket subscribers after every change.
package syncserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// Backend is a store that can also push its own snapshots
type Backend interface {
	store.Port
	store.Subscriber
}

// Server serves the REST API, the websocket feed and /metrics
type Server struct {
	backend  Backend
	hub      *Hub
	metrics  *Metrics
	upgrader websocket.Upgrader
	logger   *zap.Logger
	origins  []string
	cancels  []func()
	handler  http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(l)
	}
}

// WithAllowedOrigins sets the CORS and websocket origin allow list.
// An empty list allows every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds a server over backend and starts its hub
func New(backend Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		metrics: NewMetrics(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.hub = NewHub(s.initialMessages, s.metrics, s.logger)
	go s.hub.Run()

	s.cancels = append(s.cancels,
		backend.SubscribeTemplates(func(ts []models.Template) {
			if err := s.hub.Broadcast(TypeTemplates, ts); err != nil {
				s.logger.Warn("template broadcast failed", zap.Error(err))
			}
		}),
		backend.SubscribeSessions(func(ss []models.Session) {
			if err := s.hub.Broadcast(TypeSessions, ss); err != nil {
				s.logger.Warn("session broadcast failed", zap.Error(err))
			}
		}),
	)

	s.handler = s.routes()
	return s
}

// Handler returns the root http handler
func (s *Server) Handler() http.Handler { return s.handler }

// Hub exposes the websocket hub
func (s *Server) Hub() *Hub { return s.hub }

// Close detaches from the backend and disconnects every client
func (s *Server) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.hub.Stop()
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sync server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)
	router.Handle("/metrics", s.metrics.Handler())
	router.Get("/ws", s.serveWS)

	router.Route("/api", func(r chi.Router) {
		r.Use(s.metrics.Middleware)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.listTemplates)
			r.Post("/", s.createTemplate)
			r.Get("/{id}", s.getTemplate)
			r.Put("/{id}", s.updateTemplate)
			r.Delete("/{id}", s.deleteTemplate)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)
			r.Get("/{id}", s.getSession)
			r.Delete("/{id}", s.deleteSession)
			r.Put("/{id}/items", s.updateItems)
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/templates", s.importTemplate)
			r.Post("/sessions", s.importSession)
		})
	})

	return router
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		return
	}
	newClient(s.hub, conn, s.logger).start()
}

// initialMessages reads both collections for a newly connected client
func (s *Server) initialMessages() [][]byte {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out [][]byte
	if ts, err := s.backend.ListTemplates(ctx); err != nil {
		s.logger.Error("failed to list templates for new client", zap.Error(err))
	} else if msg, err := encodeMessage(TypeTemplates, ts); err == nil {
		out = append(out, msg)
	}
	if ss, err := s.backend.ListSessions(ctx); err != nil {
		s.logger.Error("failed to list sessions for new client", zap.Error(err))
	} else if msg, err := encodeMessage(TypeSessions, ss); err == nil {
		out = append(out, msg)
	}
	return out
}
