package api

import (
	"log"
	"net/http"
	"time"

	"dropzone/internal/room"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support, combining the
// admin HTTP router with the per-room WebSocket hub.
type Server struct {
	manager       *room.Manager
	router        *chi.Mux
	wsHub         *WebSocketHub
	rateLimiter   *IPRateLimiter
	reapInterval  time.Duration
	stopReap      chan struct{}
}

// NewServer creates a new API server with default production configuration.
//
// Background workers do NOT start until Start() is called, which keeps
// NewServer safe to use with httptest.
func NewServer(manager *room.Manager) *Server {
	return NewServerWithAuth(manager, nil, false)
}

// NewServerWithAuth creates a new API server with operator-token admin
// authentication support.
func NewServerWithAuth(manager *room.Manager, sessionMgr *SessionManager, enableAuth bool) *Server {
	s := &Server{
		manager:      manager,
		wsHub:        NewWebSocketHub(),
		reapInterval: 30 * time.Second,
		stopReap:     make(chan struct{}),
	}

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Manager:         manager,
		RateLimiter:     s.rateLimiter,
		SessionManager:  sessionMgr,
		EnableAdminAuth: enableAuth,
		OnRoomCreated:   s.wsHub.StartRoomLoop,
	})

	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes adds WebSocket-specific routes to the router. These
// need access to the wsHub instance, so they can't live in NewRouter.
func (s *Server) setupWebSocketRoutes() {
	s.router.Get("/ws", s.handleWS)
}

// Start begins the HTTP server AND starts background workers: the hub's
// registration loop, a per-room outbound/snapshot pump for every room
// already live, and periodic reaping of empty rooms.
//
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	for _, rm := range s.manager.Rooms() {
		s.wsHub.StartRoomLoop(rm)
	}
	go s.reapLoop()

	log.Printf("API server starting on %s", addr)
	log.Printf("Admin panel: http://localhost%s/admin", addr)

	return http.ListenAndServe(addr, s.router)
}

// reapLoop periodically reaps empty rooms past their grace period.
func (s *Server) reapLoop() {
	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopReap:
			return
		case <-ticker.C:
			reaped := s.manager.ReapEmpty(time.Now())
			if len(reaped) > 0 {
				log.Printf("reaped %d empty rooms: %v", len(reaped), reaped)
			}
			UpdateRoomCount(len(s.manager.Rooms()))
		}
	}
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	close(s.stopReap)
	for _, rm := range s.manager.Rooms() {
		rm.Stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(s.manager, w, r)
}
