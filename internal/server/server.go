// Package server exposes the growwly HTTP API, the serverless-function
// compatible endpoints and the realtime websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"growwly/internal/assistant"
	"growwly/internal/config"
	"growwly/internal/dayset"
	"growwly/internal/logger"
	"growwly/internal/mailer"
	"growwly/internal/music"
	"growwly/internal/realtime"
	"growwly/internal/storage"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Config    config.ServerConfig
	Store     *storage.Store
	Hub       *realtime.Hub
	Assistant *assistant.Assistant
	Notifier  *mailer.Notifier
	Music     *music.Catalog
	Calendar  dayset.Calendar
	Now       func() time.Time
}

type Server struct {
	cfg       config.ServerConfig
	store     *storage.Store
	hub       *realtime.Hub
	assistant *assistant.Assistant
	notifier  *mailer.Notifier
	music     *music.Catalog
	calendar  dayset.Calendar
	now       func() time.Time

	router  *mux.Router
	metrics *metrics
}

func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Music == nil {
		d.Music = music.Builtin()
	}
	if d.Assistant == nil {
		d.Assistant = assistant.New(0)
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub(nil)
	}

	s := &Server{
		cfg:       d.Config,
		store:     d.Store,
		hub:       d.Hub,
		assistant: d.Assistant,
		notifier:  d.Notifier,
		music:     d.Music,
		calendar:  d.Calendar,
		now:       d.Now,
		router:    mux.NewRouter(),
		metrics:   newMetrics(),
	}
	s.hub.OnClients = func(n int) { s.metrics.realtimeClients.Set(float64(n)) }
	s.assistant.OnFallback = func(reason string) { s.metrics.assistantFallbacks.WithLabelValues(reason).Inc() }

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.instrument, s.withSession)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.handler()).Methods("GET")
	s.router.HandleFunc("/ws", s.hub.ServeWS)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/auth/status", s.handleAuthStatus).Methods("GET")

	api.HandleFunc("/profiles/{id}", s.handleGetProfile).Methods("GET")
	api.HandleFunc("/profile", s.requireAuth(s.handleUpdateProfile)).Methods("PUT")

	api.HandleFunc("/progress", s.requireAuth(s.handleCreateProgress)).Methods("POST")
	api.HandleFunc("/progress", s.handleListProgress).Methods("GET")
	api.HandleFunc("/progress/headings", s.requireAuth(s.handleHeadings)).Methods("GET")
	api.HandleFunc("/progress/{id}", s.requireAuth(s.handleDeleteProgress)).Methods("DELETE")
	api.HandleFunc("/progress/{id}/like", s.requireAuth(s.handleToggleLike)).Methods("POST")
	api.HandleFunc("/progress/{id}/comments", s.requireAuth(s.handleAddComment)).Methods("POST")
	api.HandleFunc("/progress/{id}/interactions", s.handleListInteractions).Methods("GET")
	api.HandleFunc("/feed", s.handleFeed).Methods("GET")

	api.HandleFunc("/blocks", s.requireAuth(s.handleListBlocks)).Methods("GET")
	api.HandleFunc("/blocks/{id}", s.requireAuth(s.handleBlock)).Methods("POST")
	api.HandleFunc("/blocks/{id}", s.requireAuth(s.handleUnblock)).Methods("DELETE")

	api.HandleFunc("/stats/me", s.requireAuth(s.handleMyStats)).Methods("GET")
	api.HandleFunc("/stats/users/{id}", s.handleUserStats).Methods("GET")
	api.HandleFunc("/stats/community", s.handleCommunityStats).Methods("GET")

	api.HandleFunc("/chat", s.handleListMessages).Methods("GET")
	api.HandleFunc("/chat", s.requireAuth(s.handleSendMessage)).Methods("POST")
	api.HandleFunc("/chat/{id}", s.requireAuth(s.handleDeleteMessage)).Methods("DELETE")

	api.HandleFunc("/achievements", s.requireAuth(s.handleAchievements)).Methods("GET")
	api.HandleFunc("/custom-achievements", s.requireAuth(s.handleListCustomAchievements)).Methods("GET")
	api.HandleFunc("/custom-achievements", s.requireAuth(s.handleCreateCustomAchievement)).Methods("POST")
	api.HandleFunc("/custom-achievements/{id}", s.requireAuth(s.handleDeleteCustomAchievement)).Methods("DELETE")

	fn := s.router.PathPrefix("/functions").Subrouter()
	fn.HandleFunc("/ai-assistant", s.handleAssistant).Methods("POST")
	fn.HandleFunc("/send-access-request", s.handleAccessRequest).Methods("POST")
	fn.HandleFunc("/send-password-reset-request", s.handlePasswordResetRequest).Methods("POST")
	fn.HandleFunc("/music-api", s.handleListTracks).Methods("GET")
	fn.HandleFunc("/music-api", s.handleAddTrack).Methods("POST")
	fn.HandleFunc("/music-api/random", s.handleRandomTracks).Methods("GET")
	fn.HandleFunc("/music-api/{id}", s.handleGetTrack).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, fmt.Errorf("%w: route %s %s", errRouteNotFound, r.Method, r.URL.Path))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "Method not allowed"))
	})
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Bind, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the realtime hub and the HTTP server on ln. Cancelling ctx
// drains in-flight requests for at most the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		timeout := s.cfg.ShutdownTimeout.Duration
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("server shutting down", "timeout", timeout)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
